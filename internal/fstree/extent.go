package fstree

import (
	"github.com/coreapfs/apfsro/internal/decode"
	"github.com/coreapfs/apfsro/internal/types"
)

// extentKey and extentVal are the decoded halves of a FILE_EXTENT record.
type extentKey struct {
	logicalAddr uint64
}

type extentVal struct {
	lenAndFlags  uint64
	physBlockNum uint64
}

func (v extentVal) length() uint64 { return v.lenAndFlags & types.JFileExtentLenMask }

func decodeExtentKey(raw []byte) (extentKey, error) {
	r := decode.NewReader(raw, "fstree.decodeExtentKey")
	// raw includes the 8-byte j_key_t header this caller has already
	// consumed the oid/type from; logical_addr follows immediately.
	addr, err := r.U64(8)
	if err != nil {
		return extentKey{}, err
	}
	return extentKey{logicalAddr: addr}, nil
}

func decodeExtentVal(raw []byte) (extentVal, error) {
	r := decode.NewReader(raw, "fstree.decodeExtentVal")
	lenFlags, err := r.U64(0)
	if err != nil {
		return extentVal{}, err
	}
	phys, err := r.U64(8)
	if err != nil {
		return extentVal{}, err
	}
	return extentVal{lenAndFlags: lenFlags, physBlockNum: phys}, nil
}
