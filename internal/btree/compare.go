package btree

// Result is the three-way (plus one) comparison outcome used when probing a
// B-tree node for a key. Besides the usual LT/EQ/GT, a non-leaf node can
// report StraddleNonLeaf: the probe doesn't match this entry exactly, but
// this entry's child subtree is still the one that might contain it, because
// index entries name the smallest key of their subtree rather than a range.
type Result int

const (
	LT              Result = -1
	EQ              Result = 0
	GT              Result = 1
	StraddleNonLeaf Result = 2
)

// CompareOmap probes (probeOid, probeXid) against the object map entry
// (entryOid, entryXid). An entry with the probe's oid but a smaller xid
// straddles at any level: it is a candidate under the greatest-xid-at-or-
// below-probe-xid rule, and the search's peek-ahead decides whether a later
// entry supersedes it. A non-leaf (index) entry additionally straddles
// whenever the probe's oid is at or past the entry's, since index entries
// bound their subtree rather than naming a single record.
func CompareOmap(probeOid, probeXid uint64, entryOid, entryXid uint64, nonLeaf bool) Result {
	if probeOid == entryOid && probeXid == entryXid {
		return EQ
	}
	if (probeOid == entryOid && probeXid > entryXid) ||
		(nonLeaf && probeOid >= entryOid) {
		return StraddleNonLeaf
	}
	if probeOid > entryOid {
		return GT
	}
	return LT
}

// CompareFsKey probes (probeOid, probeType, probeName) against a file-system
// tree entry. Ordering is oid ascending, then record type ascending, then
// name ascending by raw byte comparison; probeName/entryName are only
// meaningful when both records are directory entries, and are otherwise
// ignored (treated as equal). The straddle rule mirrors CompareOmap: an exact
// match is EQ at any level, and a non-leaf entry straddles whenever the probe
// sorts after it.
func CompareFsKey(probeOid uint64, probeType uint8, probeName []byte, entryOid uint64, entryType uint8, entryName []byte, nonLeaf bool) Result {
	nameCmp := 0
	if probeName != nil && entryName != nil {
		nameCmp = cstrcmp(probeName, entryName)
	}

	if probeOid == entryOid && probeType == entryType && nameCmp == 0 {
		return EQ
	}

	ge := probeOid > entryOid ||
		(probeOid == entryOid && probeType > entryType) ||
		(probeOid == entryOid && probeType == entryType && nameCmp >= 0)
	if nonLeaf && ge {
		return StraddleNonLeaf
	}

	gt := probeOid > entryOid ||
		(probeOid == entryOid && probeType > entryType) ||
		(probeOid == entryOid && probeType == entryType && nameCmp > 0)
	if gt {
		return GT
	}
	return LT
}

// cstrcmp compares two byte strings the way C's strcmp does: byte by byte,
// stopping at the first NUL terminator found in either operand. Directory
// entry names are stored NUL-terminated, and comparator order must match the
// on-disk sort order exactly, so this can't be swapped for bytes.Compare
// without risking a name holding trailing padding past its NUL sorting
// differently than it would on a real mount.
func cstrcmp(a, b []byte) int {
	for i := 0; ; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		if ca == 0 {
			return 0
		}
	}
}
