package btree

import (
	"github.com/coreapfs/apfsro/internal/decode"
	"github.com/coreapfs/apfsro/internal/types"
)

// omapKeySize is sizeof(omap_key_t): every object map node uses fixed-size
// keys, passed straight through to TOCEntry regardless of what the node's
// own btree_info_fixed_t claims. The value size is not fixed across levels:
// a leaf stores the full omap_val_t (flags, size, paddr = 16 bytes), while a
// non-leaf stores only the child's 64-bit oid.
const (
	omapKeySize      = 16
	omapLeafValSize  = 16
	omapIndexValSize = 8
)

func omapValSize(isLeaf bool) int {
	if isLeaf {
		return omapLeafValSize
	}
	return omapIndexValSize
}

// search runs the standard binary search over [0, nkeys) used for every
// B-tree lookup in this package, with the one twist APFS's node layout
// requires: a StraddleNonLeaf result means the probe belongs somewhere at or
// before mid, but mid itself only tentatively matches, because index entries
// record the smallest key of their subtree rather than a range. Before
// accepting mid we peek at mid+1: if it exists and the probe does not sort
// before it, the true answer is further right, so we keep searching instead of locking
// onto the first straddling entry we see.
func search(nkeys int, compare func(i int) Result) (int, bool) {
	left, right := 0, nkeys-1
	for left <= right {
		mid := (left + right) / 2
		switch compare(mid) {
		case EQ:
			return mid, true
		case GT:
			left = mid + 1
		case StraddleNonLeaf:
			if mid+1 >= nkeys {
				return mid, true
			}
			if compare(mid+1) == LT {
				return mid, true
			}
			left = mid + 1
		default: // LT
			right = mid - 1
		}
	}
	return 0, false
}

// omapKeyAt decodes the (oid, xid) pair stored at TOC index i.
func (n *Node) omapKeyAt(i int) (uint64, uint64, error) {
	e, err := n.TOCEntry(i, omapKeySize, omapValSize(n.IsLeaf()))
	if err != nil {
		return 0, 0, err
	}
	kb, err := n.Key(e)
	if err != nil {
		return 0, 0, err
	}
	r := decode.NewReader(kb, "btree.omapKeyAt")
	oid, err := r.U64(0)
	if err != nil {
		return 0, 0, err
	}
	xid, err := r.U64(8)
	if err != nil {
		return 0, 0, err
	}
	return oid, xid, nil
}

// FindOmapEntry looks up the entry whose key most closely matches
// (probeOid, probeXid) per CompareOmap. In a leaf this is the entry for
// probeOid with the greatest xid not above probeXid; in a non-leaf (index)
// node it is the child subtree that might hold it.
func (n *Node) FindOmapEntry(probeOid, probeXid uint64) (Entry, bool, error) {
	nkeys := int(n.Nkeys)
	nonLeaf := !n.IsLeaf()
	var firstErr error
	idx, ok := search(nkeys, func(i int) Result {
		oid, xid, err := n.omapKeyAt(i)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return GT
		}
		return CompareOmap(probeOid, probeXid, oid, xid, nonLeaf)
	})
	if firstErr != nil {
		return Entry{}, false, firstErr
	}
	if !ok {
		return Entry{}, false, nil
	}
	e, err := n.TOCEntry(idx, omapKeySize, omapValSize(n.IsLeaf()))
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// fsKeyAt decodes the (oid, type, name) tuple stored at TOC index i. name is
// nil unless the record is a directory entry, matching how the comparator
// treats name as meaningless for every other record type.
func (n *Node) fsKeyAt(i int) (oid uint64, typ uint8, name []byte, entry Entry, err error) {
	entry, err = n.TOCEntry(i, 0, 0)
	if err != nil {
		return 0, 0, nil, Entry{}, err
	}
	kb, err := n.Key(entry)
	if err != nil {
		return 0, 0, nil, Entry{}, err
	}
	r := decode.NewReader(kb, "btree.fsKeyAt")
	raw, err := r.U64(0)
	if err != nil {
		return 0, 0, nil, Entry{}, err
	}
	hdr := types.JKeyT{ObjIdAndType: raw}
	oid = hdr.ObjectIdentifier()
	typ = hdr.ObjectType()
	if types.JObjTypes(typ) == types.ApfsTypeDirRec && len(kb) > 8 {
		name = kb[8:]
	}
	return oid, typ, name, entry, nil
}

// FindFsTreeEntry looks up the entry matching (probeOid, probeType,
// probeName) in a file-system tree node, per CompareFsKey. probeName is
// ignored unless probeType is ApfsTypeDirRec.
func (n *Node) FindFsTreeEntry(probeOid uint64, probeType uint8, probeName []byte) (Entry, bool, error) {
	_, entry, ok, err := n.FindFsTreeEntryIndex(probeOid, probeType, probeName)
	return entry, ok, err
}

// FindFsTreeEntryIndex behaves like FindFsTreeEntry but also returns the TOC
// index of the match, so a caller descending an inode's branch can peek at
// the neighboring entry to detect when records for one object id straddle
// two subtrees of the same node.
func (n *Node) FindFsTreeEntryIndex(probeOid uint64, probeType uint8, probeName []byte) (int, Entry, bool, error) {
	nkeys := int(n.Nkeys)
	nonLeaf := !n.IsLeaf()
	var firstErr error
	idx, ok := search(nkeys, func(i int) Result {
		oid, typ, name, _, err := n.fsKeyAt(i)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return GT
		}
		return CompareFsKey(probeOid, probeType, probeName, oid, typ, name, nonLeaf)
	})
	if firstErr != nil {
		return 0, Entry{}, false, firstErr
	}
	if !ok {
		return 0, Entry{}, false, nil
	}
	_, _, _, entry, err := n.fsKeyAt(idx)
	if err != nil {
		return 0, Entry{}, false, err
	}
	return idx, entry, true, nil
}

// FsKeyAt exposes the decoded (oid, type, name) tuple stored at TOC index i,
// for callers that need to inspect a neighboring key without performing a
// fresh comparator-driven search (the inode-branch straddle check, and the
// fs-tree walker's full-subtree scans).
func (n *Node) FsKeyAt(i int) (oid uint64, typ uint8, name []byte, err error) {
	oid, typ, name, _, err = n.fsKeyAt(i)
	return
}

// EntryAt returns the TOC entry at index i for a variable-size-key node
// (every file-system tree node). Fixed-kv nodes (object maps) use TOCEntry
// directly since they must supply the tree's declared key/value sizes.
func (n *Node) EntryAt(i int) (Entry, error) { return n.TOCEntry(i, 0, 0) }
