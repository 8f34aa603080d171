// Package fstree walks a volume's file-system B-tree: locating an inode's
// branch, enumerating directory entries, and satisfying file reads against
// file-extent records. It mirrors the object map resolver's descent style
// but keyed on the richer (oid, type, name) file-system key instead of
// (oid, xid).
package fstree

import (
	"encoding/binary"

	"github.com/coreapfs/apfsro/internal/blockdev"
	"github.com/coreapfs/apfsro/internal/btree"
	"github.com/coreapfs/apfsro/internal/omap"
	"github.com/coreapfs/apfsro/internal/types"
)

// Walker descends a single volume's file-system tree. Non-leaf fs-tree
// values are logical oids resolved through the volume's object map, never
// physical addresses directly (unlike the container/volume omap fields
// themselves, which this format reads as raw physical blocks — see
// internal/omap's documented quirk).
type Walker struct {
	dev       blockdev.Device
	omap      *omap.Resolver
	omapRoot  types.Paddr
	xid       types.XidT
	blockSize uint32
}

// NewWalker builds a Walker over dev, resolving non-leaf child oids through
// the volume object map tree rooted at physical block omapRoot, at the
// transaction id the mount snapshotted at mount time.
func NewWalker(dev blockdev.Device, omapRoot types.Paddr, xid types.XidT, blockSize uint32) *Walker {
	return &Walker{
		dev:       dev,
		omap:      omap.New(dev, blockSize),
		omapRoot:  omapRoot,
		xid:       xid,
		blockSize: blockSize,
	}
}

func (w *Walker) loadNode(paddr types.Paddr) (*btree.Node, error) {
	buf, err := w.dev.ReadBlock(paddr, w.blockSize)
	if err != nil {
		return nil, err
	}
	return btree.ParseNode(buf, w.blockSize)
}

// childPaddr resolves a non-leaf fs-tree value (a little-endian 64-bit
// logical oid) to the physical block currently backing it.
func (w *Walker) childPaddr(value []byte) (types.Paddr, error) {
	if len(value) < 8 {
		return 0, types.NewError(types.ErrMalformedNode, "fstree.childPaddr", nil)
	}
	oid := binary.LittleEndian.Uint64(value[:8])
	return w.omap.Resolve(w.omapRoot, types.OidT(oid), w.xid)
}

// GetInodeBranch descends from the file-system tree rooted at rootPaddr to
// the node that contains, or is the nearest common ancestor of, every record
// whose object id is ino. The inode's own INODE record plus its directory
// entries and file extents can straddle more than one leaf; callers then
// walk the whole subtree returned here rather than a single leaf.
func (w *Walker) GetInodeBranch(rootPaddr types.Paddr, ino uint64) (*btree.Node, error) {
	cur := rootPaddr
	for {
		node, err := w.loadNode(cur)
		if err != nil {
			return nil, err
		}
		if node.IsLeaf() {
			return node, nil
		}
		idx, entry, ok, err := node.FindFsTreeEntryIndex(ino, uint8(types.ApfsTypeInode), nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.NewError(types.ErrNotFound, "fstree.GetInodeBranch", nil)
		}
		if idx+1 < node.TOCEntryCount() {
			nextOid, _, _, err := node.FsKeyAt(idx + 1)
			if err != nil {
				return nil, err
			}
			if nextOid == ino {
				return node, nil
			}
		}
		value, err := node.Value(entry)
		if err != nil {
			return nil, err
		}
		cur, err = w.childPaddr(value)
		if err != nil {
			return nil, err
		}
	}
}

// forEachRecord performs an explicit-stack, depth-first walk of the subtree
// rooted at branch, invoking each for every leaf record's raw key and value
// bytes. Non-leaf children are pushed in reverse TOC order so they pop (and
// are visited) left to right, matching the tree's key order.
func (w *Walker) forEachRecord(branch *btree.Node, each func(key, value []byte) error) error {
	stack := []*btree.Node{branch}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.IsLeaf() {
			for i := 0; i < n.TOCEntryCount(); i++ {
				entry, err := n.EntryAt(i)
				if err != nil {
					return err
				}
				key, err := n.Key(entry)
				if err != nil {
					return err
				}
				value, err := n.Value(entry)
				if err != nil {
					return err
				}
				if err := each(key, value); err != nil {
					return err
				}
			}
			continue
		}

		for i := n.TOCEntryCount() - 1; i >= 0; i-- {
			entry, err := n.EntryAt(i)
			if err != nil {
				return err
			}
			value, err := n.Value(entry)
			if err != nil {
				return err
			}
			childPaddr, err := w.childPaddr(value)
			if err != nil {
				return err
			}
			child, err := w.loadNode(childPaddr)
			if err != nil {
				return err
			}
			stack = append(stack, child)
		}
	}
	return nil
}

// ListDirectory walks the subtree rooted at branch and returns every
// directory-entry record belonging to the directory inode ino, in tree
// order. Entries whose dentry type nibble isn't a directory or a regular
// file are silently skipped, per this reader's read-only subset.
func (w *Walker) ListDirectory(branch *btree.Node, ino uint64) ([]Dirent, error) {
	var out []Dirent
	err := w.forEachRecord(branch, func(key, value []byte) error {
		oid, typ, _, err := decodeKeyHeader(key)
		if err != nil {
			return err
		}
		if oid != ino || types.JObjTypes(typ) != types.ApfsTypeDirRec {
			return nil
		}
		drec, err := decodeDrec(value)
		if err != nil {
			return err
		}
		kind := entryKindOf(drec)
		if kind == KindUnknown {
			return nil
		}
		name := key[8:]
		out = append(out, Dirent{Name: NormalizeName(name), ChildIno: drec.FileId, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeInode locates and decodes the INODE record for ino within the
// subtree rooted at branch.
func (w *Walker) DecodeInode(branch *btree.Node, ino uint64) (*Inode, error) {
	var found *Inode
	err := w.forEachRecord(branch, func(key, value []byte) error {
		if found != nil {
			return nil
		}
		oid, typ, _, err := decodeKeyHeader(key)
		if err != nil {
			return err
		}
		if oid != ino || types.JObjTypes(typ) != types.ApfsTypeInode {
			return nil
		}
		inode, err := decodeInode(value)
		if err != nil {
			return err
		}
		found = inode
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, types.NewError(types.ErrNotFound, "fstree.DecodeInode", nil)
	}
	return found, nil
}

// extentMatch is the single file-extent record, among ino's FILE_EXTENT
// records, whose logical range covers a queried offset.
type extentMatch struct {
	logicalAddr  uint64
	length       uint64
	physBlockNum uint64
}

// findExtent locates, within ino's FILE_EXTENT records in the subtree rooted
// at branch, the one extent whose logical range contains off.
func (w *Walker) findExtent(branch *btree.Node, ino uint64, off uint64) (*extentMatch, error) {
	var found *extentMatch
	err := w.forEachRecord(branch, func(key, value []byte) error {
		if found != nil {
			return nil
		}
		oid, typ, _, err := decodeKeyHeader(key)
		if err != nil {
			return err
		}
		if oid != ino || types.JObjTypes(typ) != types.ApfsTypeFileExtent {
			return nil
		}
		ek, err := decodeExtentKey(key)
		if err != nil {
			return err
		}
		ev, err := decodeExtentVal(value)
		if err != nil {
			return err
		}
		length := ev.length()
		if off >= ek.logicalAddr && off < ek.logicalAddr+length {
			found = &extentMatch{logicalAddr: ek.logicalAddr, length: length, physBlockNum: ev.physBlockNum}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ReadFile satisfies one short read against ino's file-extent records: it
// locates the extent covering off, reads exactly one physical block, and
// returns up to min(remaining request, remaining file bytes, remaining
// bytes in that block) bytes. Callers loop, advancing off by the returned
// slice's length, until they have len bytes or hit end of file.
func (w *Walker) ReadFile(branch *btree.Node, ino uint64, fileSize uint64, off uint64, length int) ([]byte, error) {
	if length <= 0 || off >= fileSize {
		return nil, nil
	}
	extent, err := w.findExtent(branch, ino, off)
	if err != nil {
		return nil, err
	}
	if extent == nil {
		return nil, types.NewError(types.ErrNotFound, "fstree.ReadFile", nil)
	}

	startBlock := extent.physBlockNum + (off-extent.logicalAddr)/uint64(w.blockSize)
	buf, err := w.dev.ReadBlock(types.Paddr(startBlock), w.blockSize)
	if err != nil {
		return nil, err
	}

	blockOff := int(off % uint64(w.blockSize))
	n := length
	if avail := int(w.blockSize) - blockOff; avail < n {
		n = avail
	}
	if remain := int(fileSize - off); remain < n {
		n = remain
	}
	if blockOff+n > len(buf) {
		return nil, types.NewError(types.ErrMalformedBlock, "fstree.ReadFile", nil)
	}
	out := make([]byte, n)
	copy(out, buf[blockOff:blockOff+n])
	return out, nil
}

// VerifyChecksums walks every node in the subtree rooted at rootPaddr,
// recomputing each one's Fletcher-64 checksum against its stored o_cksum.
// It never runs on the mount/lookup/iterate/read path; it exists only for
// diagnostic tooling (fsck) that wants to flag on-disk corruption this
// reader otherwise trusts the container to not have.
func (w *Walker) VerifyChecksums(rootPaddr types.Paddr) (checked, bad int, err error) {
	stack := []types.Paddr{rootPaddr}
	for len(stack) > 0 {
		paddr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		buf, err := w.dev.ReadBlock(paddr, w.blockSize)
		if err != nil {
			return checked, bad, err
		}
		node, err := btree.ParseNode(buf, w.blockSize)
		if err != nil {
			return checked, bad, err
		}
		checked++
		if !btree.VerifyChecksum(node.Header, buf) {
			bad++
		}
		if node.IsLeaf() {
			continue
		}
		for i := 0; i < node.TOCEntryCount(); i++ {
			entry, err := node.EntryAt(i)
			if err != nil {
				return checked, bad, err
			}
			value, err := node.Value(entry)
			if err != nil {
				return checked, bad, err
			}
			childPaddr, err := w.childPaddr(value)
			if err != nil {
				return checked, bad, err
			}
			stack = append(stack, childPaddr)
		}
	}
	return checked, bad, nil
}

// decodeKeyHeader decodes the j_key_t header shared by every fs-tree key:
// the packed object id and record type nibble.
func decodeKeyHeader(raw []byte) (oid uint64, typ uint8, rest []byte, err error) {
	if len(raw) < 8 {
		return 0, 0, nil, types.NewError(types.ErrMalformedBlock, "fstree.decodeKeyHeader", nil)
	}
	hdr := types.JKeyT{ObjIdAndType: binary.LittleEndian.Uint64(raw[:8])}
	return hdr.ObjectIdentifier(), hdr.ObjectType(), raw[8:], nil
}
