package fstree

import (
	"encoding/binary"

	"github.com/coreapfs/apfsro/internal/decode"
	"github.com/coreapfs/apfsro/internal/types"
)

// inodeValFixedSize is sizeof(j_inode_val_t) without its trailing xfields
// blob: six 8-byte timestamps/ids, internal_flags, four 4-byte fields,
// owner, group, mode, pad1, then uncompressed_size.
const inodeValFixedSize = 92

// Inode is the decoded value half of an inode record, plus the size
// derived from its DSTREAM extended field when present.
type Inode struct {
	types.JInodeValT
	// Size is the file's byte length, read from the DSTREAM extended
	// field's dstream.size; zero when no DSTREAM field is present (an
	// empty file, or a directory).
	Size uint64
}

// decodeInode parses a j_inode_val_t value buffer, including its extended
// field blob. A value exactly inodeValFixedSize long carries no extended
// fields at all (not even an empty xf_blob header), matching the on-disk
// encoder's choice to omit it entirely for the common case.
func decodeInode(raw []byte) (*Inode, error) {
	r := decode.NewReader(raw, "fstree.decodeInode")
	if len(raw) < inodeValFixedSize {
		return nil, types.NewError(types.ErrMalformedBlock, "fstree.decodeInode", nil)
	}

	inode := &Inode{}
	var err error
	if inode.ParentId, err = r.U64(0); err != nil {
		return nil, err
	}
	if inode.PrivateId, err = r.U64(8); err != nil {
		return nil, err
	}
	if inode.CreateTime, err = r.U64(16); err != nil {
		return nil, err
	}
	if inode.ModTime, err = r.U64(24); err != nil {
		return nil, err
	}
	if inode.ChangeTime, err = r.U64(32); err != nil {
		return nil, err
	}
	if inode.AccessTime, err = r.U64(40); err != nil {
		return nil, err
	}
	if inode.InternalFlags, err = r.U64(48); err != nil {
		return nil, err
	}
	nchild, err := r.I32(56)
	if err != nil {
		return nil, err
	}
	inode.NchildrenOrNlink = nchild
	if inode.DefaultProtectionClass, err = r.U32(60); err != nil {
		return nil, err
	}
	if inode.WriteGenerationCounter, err = r.U32(64); err != nil {
		return nil, err
	}
	if inode.BsdFlags, err = r.U32(68); err != nil {
		return nil, err
	}
	owner, err := r.U32(72)
	if err != nil {
		return nil, err
	}
	inode.Owner = types.UidT(owner)
	group, err := r.U32(76)
	if err != nil {
		return nil, err
	}
	inode.Group = types.GidT(group)
	mode, err := r.U16(80)
	if err != nil {
		return nil, err
	}
	inode.Mode = types.Mode(mode)
	if inode.UncompressedSize, err = r.U64(84); err != nil {
		return nil, err
	}

	if len(raw) > inodeValFixedSize {
		inode.XFields = raw[inodeValFixedSize:]
		inode.Size = dstreamSizeFromXFields(inode.XFields)
	}
	return inode, nil
}

// dstreamSizeFromXFields scans an xf_blob for a DSTREAM extended field and
// returns its dstream.size, or 0 if none is present.
func dstreamSizeFromXFields(blob []byte) uint64 {
	if len(blob) < 4 {
		return 0
	}
	numExts := binary.LittleEndian.Uint16(blob[0:2])
	descStart := 4
	payloadStart := descStart + int(numExts)*4 // sizeof(x_field_t) = 4
	if payloadStart > len(blob) {
		return 0
	}

	payloadOff := 0
	for i := 0; i < int(numExts); i++ {
		descOff := descStart + i*4
		if descOff+4 > len(blob) {
			return 0
		}
		xType := blob[descOff]
		xSize := int(binary.LittleEndian.Uint16(blob[descOff+2 : descOff+4]))
		if xType == types.InoExtTypeDstream {
			start := payloadStart + payloadOff
			if start+8 > len(blob) {
				return 0
			}
			return binary.LittleEndian.Uint64(blob[start : start+8])
		}
		payloadOff += roundUp8(xSize)
	}
	return 0
}

func roundUp8(n int) int { return (n + 7) &^ 7 }
