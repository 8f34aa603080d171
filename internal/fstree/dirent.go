package fstree

import (
	"github.com/coreapfs/apfsro/internal/decode"
	"github.com/coreapfs/apfsro/internal/types"
)

// EntryKind is the simplified directory-entry kind this reader exposes: the
// on-disk dentry type nibble carries more values, but only directories and
// regular files are walkable by a read-only mount of this scope.
type EntryKind int

const (
	KindUnknown EntryKind = iota
	KindDirectory
	KindFile
)

// Dirent is one directory entry produced by Walker.ListDirectory.
type Dirent struct {
	Name     []byte
	ChildIno uint64
	Kind     EntryKind
}

// decodeDrec parses a directory-entry value buffer.
func decodeDrec(raw []byte) (types.JDrecValT, error) {
	r := decode.NewReader(raw, "fstree.decodeDrec")
	var v types.JDrecValT
	var err error
	if v.FileId, err = r.U64(0); err != nil {
		return v, err
	}
	if v.DateAdded, err = r.U64(8); err != nil {
		return v, err
	}
	flags, err := r.U16(16)
	if err != nil {
		return v, err
	}
	v.Flags = flags
	if len(raw) > 18 {
		v.XFields = raw[18:]
	}
	return v, nil
}

func entryKindOf(v types.JDrecValT) EntryKind {
	switch v.FileType() {
	case types.DtDir:
		return KindDirectory
	case types.DtReg:
		return KindFile
	default:
		return KindUnknown
	}
}
