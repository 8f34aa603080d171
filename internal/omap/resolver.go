// Package omap resolves an (oid, xid) pair to a physical block address by
// descending an object map B-tree, picking at each leaf the entry with the
// greatest transaction id not exceeding the query.
package omap

import (
	"encoding/binary"

	"github.com/coreapfs/apfsro/internal/blockdev"
	"github.com/coreapfs/apfsro/internal/btree"
	"github.com/coreapfs/apfsro/internal/types"
)

// Resolver descends an object map tree read from a fixed block size device.
type Resolver struct {
	dev       blockdev.Device
	blockSize uint32
}

// New builds a Resolver over dev, whose blocks are all blockSize bytes.
func New(dev blockdev.Device, blockSize uint32) *Resolver {
	return &Resolver{dev: dev, blockSize: blockSize}
}

// Resolve walks the omap tree rooted at the physical block treeRoot looking
// for (oid, xid), returning the physical address the leaf entry names.
//
// Non-leaf values in this format are not the logical oid of a child node:
// they are read and used directly as a physical block address, bypassing
// the generic "value at non-leaf = child logical oid" rule a well-formed
// object map would follow. This is a documented format-level quirk
// (preserved, not "fixed") that this resolver reproduces bit-for-bit.
func (r *Resolver) Resolve(treeRoot types.Paddr, oid types.OidT, xid types.XidT) (types.Paddr, error) {
	cur := treeRoot
	for {
		buf, err := r.dev.ReadBlock(cur, r.blockSize)
		if err != nil {
			return 0, err
		}
		node, err := btree.ParseNode(buf, r.blockSize)
		if err != nil {
			return 0, err
		}
		entry, ok, err := node.FindOmapEntry(uint64(oid), uint64(xid))
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, types.NewError(types.ErrNotFound, "omap.Resolve", nil)
		}
		vb, err := node.Value(entry)
		if err != nil {
			return 0, err
		}
		if node.IsLeaf() {
			if len(vb) < 16 {
				return 0, types.NewError(types.ErrMalformedNode, "omap.Resolve", nil)
			}
			return types.Paddr(binary.LittleEndian.Uint64(vb[8:16])), nil
		}
		if len(vb) < 8 {
			return 0, types.NewError(types.ErrMalformedNode, "omap.Resolve", nil)
		}
		cur = types.Paddr(binary.LittleEndian.Uint64(vb[0:8]))
	}
}
