package btree

import (
	"encoding/binary"
	"testing"

	"github.com/coreapfs/apfsro/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockSize = 4096

// buildOmapLeaf constructs a leaf omap node buffer with the given
// (oid, xid) -> paddr entries, sorted by the caller, written as fixed-size
// kvoff_t TOC entries per the container's on-disk layout.
func buildOmapLeaf(t *testing.T, entries []struct {
	oid, xid uint64
	paddr    int64
}) []byte {
	t.Helper()
	buf := make([]byte, testBlockSize)

	keyZone := make([]byte, 0, len(entries)*16)
	valZone := make([]byte, 0, len(entries)*16)
	toc := make([]byte, 0, len(entries)*4)

	// Values are appended in order but addressed end-relative, so the first
	// entry written ends up with the largest v_off.
	for i, e := range entries {
		koff := len(keyZone)
		kbuf := make([]byte, 16)
		binary.LittleEndian.PutUint64(kbuf[0:8], e.oid)
		binary.LittleEndian.PutUint64(kbuf[8:16], e.xid)
		keyZone = append(keyZone, kbuf...)

		vbuf := make([]byte, 16)
		binary.LittleEndian.PutUint32(vbuf[0:4], 0)
		binary.LittleEndian.PutUint32(vbuf[4:8], 0)
		binary.LittleEndian.PutUint64(vbuf[8:16], uint64(e.paddr))
		valZone = append(valZone, vbuf...)

		_ = i
		tocEntry := make([]byte, 4)
		binary.LittleEndian.PutUint16(tocEntry[0:2], uint16(koff))
		// v_off is filled below once every entry's backward offset is known.
		toc = append(toc, tocEntry...)
	}
	// Value i occupies the i-th 16-byte slot from the start of valZone, but
	// voff is measured backward from the end of the value area, so voff for
	// slot i is (len(valZone) - i*16).
	for i := range entries {
		voff := len(valZone) - i*16
		binary.LittleEndian.PutUint16(toc[i*4+2:i*4+4], uint16(voff))
	}

	const tableOff = 0
	tableLen := len(toc)
	freeSpaceOff := len(keyZone)

	binary.LittleEndian.PutUint16(buf[32+0:32+2], types.BtnodeLeaf|types.BtnodeFixedKvSize)
	binary.LittleEndian.PutUint16(buf[32+2:32+4], 0) // level
	binary.LittleEndian.PutUint32(buf[32+4:32+8], uint32(len(entries)))
	binary.LittleEndian.PutUint16(buf[32+8:32+10], tableOff)
	binary.LittleEndian.PutUint16(buf[32+10:32+12], uint16(tableLen))
	binary.LittleEndian.PutUint16(buf[32+12:32+14], uint16(freeSpaceOff))

	data := buf[headerSize:]
	copy(data[tableOff:], toc)
	copy(data[tableOff+tableLen:], keyZone)
	// value zone is end-relative within data; place it at the very end.
	copy(data[len(data)-len(valZone):], valZone)

	return buf
}

func TestParseNode_LeafGeometry(t *testing.T) {
	buf := buildOmapLeaf(t, []struct {
		oid, xid uint64
		paddr    int64
	}{
		{oid: 10, xid: 1, paddr: 100},
		{oid: 20, xid: 1, paddr: 200},
		{oid: 30, xid: 1, paddr: 300},
	})

	n, err := ParseNode(buf, testBlockSize)
	require.NoError(t, err)
	assert.True(t, n.IsLeaf())
	assert.False(t, n.IsRoot())
	assert.True(t, n.HasFixedKVSize())
	assert.Equal(t, uint32(3), n.Nkeys)
}

func TestParseNode_RejectsShortBuffer(t *testing.T) {
	_, err := ParseNode(make([]byte, 10), testBlockSize)
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedNode, types.KindOf(err))
}

func TestParseNode_RejectsBadTOCGeometry(t *testing.T) {
	buf := make([]byte, testBlockSize)
	// table_space.off points past the data area.
	binary.LittleEndian.PutUint16(buf[32+8:32+10], uint16(testBlockSize))
	binary.LittleEndian.PutUint16(buf[32+10:32+12], 4)
	_, err := ParseNode(buf, testBlockSize)
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedNode, types.KindOf(err))
}

func TestParseNode_RootReservesBtreeInfo(t *testing.T) {
	buf := buildOmapLeaf(t, []struct {
		oid, xid uint64
		paddr    int64
	}{{oid: 1, xid: 1, paddr: 5}})
	binary.LittleEndian.PutUint16(buf[32+0:32+2], types.BtnodeLeaf|types.BtnodeFixedKvSize|types.BtnodeRoot)

	n, err := ParseNode(buf, testBlockSize)
	require.NoError(t, err)
	assert.True(t, n.IsRoot())
	assert.Equal(t, len(n.data)-btreeInfoSize, len(n.valZone))
}
