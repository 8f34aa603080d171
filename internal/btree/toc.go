package btree

import (
	"github.com/coreapfs/apfsro/internal/decode"
	"github.com/coreapfs/apfsro/internal/types"
)

// Entry is a decoded table-of-contents slot: the key and value locations for
// TOC index i, normalized to (offset, length) pairs regardless of whether the
// node stores fixed- or variable-size entries.
type Entry struct {
	KeyOff, KeyLen     int
	ValueOff, ValueLen int
}

// kvoffSize/kvlocSize are sizeof(kvoff_t) and sizeof(kvloc_t): two uint16s,
// or two nloc_t (2 uint16 each).
const (
	kvoffSize = 4
	kvlocSize = 8
)

// TOCEntry decodes the i-th table-of-contents slot. Fixed-size nodes (the
// BTNODE_FIXED_KV_SIZE flag) store an array of kvoff_t; the caller supplies
// keySize/valSize (from the tree's btree_info_fixed_t) for those. Variable
// nodes store kvloc_t and carry their own lengths.
func (n *Node) TOCEntry(i int, keySize, valSize int) (Entry, error) {
	if i < 0 || i >= int(n.Nkeys) {
		return Entry{}, types.NewError(types.ErrNotFound, "btree.TOCEntry", nil)
	}
	toc := n.TOCBytes()
	r := decode.NewReader(toc, "btree.TOCEntry")

	if n.HasFixedKVSize() {
		base := i * kvoffSize
		koff, err := r.U16(base)
		if err != nil {
			return Entry{}, err
		}
		voff, err := r.U16(base + 2)
		if err != nil {
			return Entry{}, err
		}
		return Entry{
			KeyOff: int(koff), KeyLen: keySize,
			ValueOff: int(voff), ValueLen: valSize,
		}, nil
	}

	base := i * kvlocSize
	koff, err := r.U16(base)
	if err != nil {
		return Entry{}, err
	}
	klen, err := r.U16(base + 2)
	if err != nil {
		return Entry{}, err
	}
	voff, err := r.U16(base + 4)
	if err != nil {
		return Entry{}, err
	}
	vlen, err := r.U16(base + 6)
	if err != nil {
		return Entry{}, err
	}
	if koff == types.BtoffInvalid || voff == types.BtoffInvalid {
		return Entry{}, types.NewError(types.ErrMalformedNode, "btree.TOCEntry", nil)
	}
	return Entry{
		KeyOff: int(koff), KeyLen: int(klen),
		ValueOff: int(voff), ValueLen: int(vlen),
	}, nil
}

// Key returns the raw key bytes for TOC entry e.
func (n *Node) Key(e Entry) ([]byte, error) { return n.KeyBytes(e.KeyOff, e.KeyLen) }

// Value returns the raw value bytes for TOC entry e. Non-leaf nodes in a
// fixed-kv tree store just a child oid (8 bytes) regardless of the tree's
// declared value size, since index values are always oid_t.
func (n *Node) Value(e Entry) ([]byte, error) { return n.ValueBytes(e.ValueOff, e.ValueLen) }
