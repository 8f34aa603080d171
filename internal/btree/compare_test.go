package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareOmap_Leaf(t *testing.T) {
	assert.Equal(t, EQ, CompareOmap(5, 10, 5, 10, false))
	assert.Equal(t, GT, CompareOmap(6, 10, 5, 10, false))
	assert.Equal(t, LT, CompareOmap(4, 10, 5, 10, false))
	// Same oid, greater xid than the entry: the entry is still a candidate
	// for greatest-xid-at-or-below selection, so it straddles even at a
	// leaf and the search's peek-ahead settles whether to accept it.
	assert.Equal(t, StraddleNonLeaf, CompareOmap(5, 11, 5, 10, false))
}

func TestCompareOmap_NonLeafStraddles(t *testing.T) {
	// Equal oid, larger query xid than the index entry: the entry's subtree
	// might still hold an older-xid version that is still >= the query.
	assert.Equal(t, StraddleNonLeaf, CompareOmap(5, 11, 5, 10, true))
	// Equal oid, smaller query xid: the probe's oid is at the entry's, so it
	// still straddles in an index node.
	assert.Equal(t, StraddleNonLeaf, CompareOmap(5, 1, 5, 10, true))
	// Smaller oid than the index entry: the probe sorts before it.
	assert.Equal(t, LT, CompareOmap(3, 1, 5, 10, true))
	// A larger oid also straddles in an index node: the probe can only be
	// ruled out of the entry's subtree by peeking at the next entry.
	assert.Equal(t, StraddleNonLeaf, CompareOmap(6, 1, 5, 10, true))
	assert.Equal(t, GT, CompareOmap(6, 1, 5, 10, false))
}

func TestCompareFsKey_NameOrdering(t *testing.T) {
	assert.Equal(t, EQ, CompareFsKey(1, 9, []byte("alice\x00"), 1, 9, []byte("alice\x00"), false))
	assert.Equal(t, LT, CompareFsKey(1, 9, []byte("alice\x00"), 1, 9, []byte("bob\x00"), false))
	assert.Equal(t, GT, CompareFsKey(1, 9, []byte("carol\x00"), 1, 9, []byte("bob\x00"), false))
}

func TestCompareFsKey_TypeBeforeName(t *testing.T) {
	// Different record types for the same oid order by type regardless of
	// any name bytes (which are only meaningful for directory records).
	assert.Equal(t, GT, CompareFsKey(1, 3, nil, 1, 2, nil, false))
	assert.Equal(t, LT, CompareFsKey(1, 2, nil, 1, 3, nil, false))
}

func TestCompareFsKey_NonLeafStraddles(t *testing.T) {
	assert.Equal(t, StraddleNonLeaf, CompareFsKey(1, 9, []byte("carol\x00"), 1, 9, []byte("bob\x00"), true))
	assert.Equal(t, EQ, CompareFsKey(1, 9, []byte("bob\x00"), 1, 9, []byte("bob\x00"), true))
	assert.Equal(t, LT, CompareFsKey(1, 9, []byte("alice\x00"), 1, 9, []byte("bob\x00"), true))
}

func TestCstrcmp_StopsAtNul(t *testing.T) {
	assert.Equal(t, 0, cstrcmp([]byte("abc\x00garbage"), []byte("abc\x00other")))
	assert.Less(t, cstrcmp([]byte("abc\x00"), []byte("abd\x00")), 0)
	assert.Greater(t, cstrcmp([]byte("abd\x00"), []byte("abc\x00")), 0)
}
