package omap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreapfs/apfsro/internal/types"
)

const testBlockSize = 4096

// memDevice is a fixed-size in-memory block device used only in tests.
type memDevice struct {
	blocks map[types.Paddr][]byte
}

func newMemDevice() *memDevice { return &memDevice{blocks: map[types.Paddr][]byte{}} }

func (m *memDevice) put(paddr types.Paddr, buf []byte) { m.blocks[paddr] = buf }

func (m *memDevice) ReadBlock(paddr types.Paddr, blockSize uint32) ([]byte, error) {
	buf, ok := m.blocks[paddr]
	if !ok {
		return nil, types.NewError(types.ErrIO, "memDevice.ReadBlock", nil)
	}
	return buf, nil
}
func (m *memDevice) Size() int64  { return int64(len(m.blocks)) * testBlockSize }
func (m *memDevice) Close() error { return nil }

type omapEntry struct {
	oid, xid uint64
	paddr    int64
}

// buildOmapLeafBlock writes a leaf omap node, fixed kvoff_t TOC, into a
// fresh testBlockSize buffer.
func buildOmapLeafBlock(entries []omapEntry) []byte {
	buf := make([]byte, testBlockSize)
	var keyZone, valZone, toc []byte
	for _, e := range entries {
		koff := len(keyZone)
		kbuf := make([]byte, 16)
		binary.LittleEndian.PutUint64(kbuf[0:8], e.oid)
		binary.LittleEndian.PutUint64(kbuf[8:16], e.xid)
		keyZone = append(keyZone, kbuf...)

		vbuf := make([]byte, 16)
		binary.LittleEndian.PutUint64(vbuf[8:16], uint64(e.paddr))
		valZone = append(valZone, vbuf...)

		tocEntry := make([]byte, 4)
		binary.LittleEndian.PutUint16(tocEntry[0:2], uint16(koff))
		toc = append(toc, tocEntry...)
	}
	for i := range entries {
		voff := len(valZone) - i*16
		binary.LittleEndian.PutUint16(toc[i*4+2:i*4+4], uint16(voff))
	}

	tableLen := len(toc)
	freeSpaceOff := len(keyZone)

	binary.LittleEndian.PutUint16(buf[32:34], types.BtnodeLeaf|types.BtnodeFixedKvSize)
	binary.LittleEndian.PutUint16(buf[34:36], 0)
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(entries)))
	binary.LittleEndian.PutUint16(buf[40:42], 0)
	binary.LittleEndian.PutUint16(buf[42:44], uint16(tableLen))
	binary.LittleEndian.PutUint16(buf[44:46], uint16(freeSpaceOff))

	const headerSize = 56
	data := buf[headerSize:]
	copy(data[0:], toc)
	copy(data[tableLen:], keyZone)
	copy(data[len(data)-len(valZone):], valZone)
	return buf
}

// buildOmapIndexBlock writes a non-leaf node whose single entry straddles
// every oid >= the given key, pointing at childBlock.
func buildOmapIndexBlock(oid, xid uint64, childBlock int64) []byte {
	buf := make([]byte, testBlockSize)
	keyZone := make([]byte, 16)
	binary.LittleEndian.PutUint64(keyZone[0:8], oid)
	binary.LittleEndian.PutUint64(keyZone[8:16], xid)

	valZone := make([]byte, 8)
	binary.LittleEndian.PutUint64(valZone[0:8], uint64(childBlock))

	toc := make([]byte, 4)
	binary.LittleEndian.PutUint16(toc[0:2], 0)
	binary.LittleEndian.PutUint16(toc[2:4], uint16(len(valZone)))

	binary.LittleEndian.PutUint16(buf[32:34], types.BtnodeFixedKvSize) // non-leaf, non-root
	binary.LittleEndian.PutUint16(buf[34:36], 1)                      // level 1
	binary.LittleEndian.PutUint32(buf[36:40], 1)
	binary.LittleEndian.PutUint16(buf[40:42], 0)
	binary.LittleEndian.PutUint16(buf[42:44], uint16(len(toc)))
	binary.LittleEndian.PutUint16(buf[44:46], uint16(len(keyZone)))

	const headerSize = 56
	data := buf[headerSize:]
	copy(data[0:], toc)
	copy(data[len(toc):], keyZone)
	copy(data[len(data)-len(valZone):], valZone)
	return buf
}

func TestResolve_LeafExactMatch(t *testing.T) {
	dev := newMemDevice()
	dev.put(0, buildOmapLeafBlock([]omapEntry{
		{oid: 5, xid: 1, paddr: 500},
		{oid: 6, xid: 1, paddr: 600},
	}))
	r := New(dev, testBlockSize)

	paddr, err := r.Resolve(0, 6, 1)
	require.NoError(t, err)
	assert.Equal(t, types.Paddr(600), paddr)
}

func TestResolve_DescendsThroughIndexToLeaf(t *testing.T) {
	dev := newMemDevice()
	dev.put(0, buildOmapIndexBlock(100, 1, 1))
	dev.put(1, buildOmapLeafBlock([]omapEntry{{oid: 100, xid: 1, paddr: 999}}))
	r := New(dev, testBlockSize)

	paddr, err := r.Resolve(0, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, types.Paddr(999), paddr)
}

func TestResolve_PicksGreatestXidAtOrBelowQuery(t *testing.T) {
	dev := newMemDevice()
	dev.put(0, buildOmapLeafBlock([]omapEntry{
		{oid: 42, xid: 5, paddr: 1000},
		{oid: 42, xid: 9, paddr: 2000},
	}))
	r := New(dev, testBlockSize)

	// Between two committed xids: the older one is the visible version.
	paddr, err := r.Resolve(0, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, types.Paddr(1000), paddr)

	// Exactly at a committed xid.
	paddr, err = r.Resolve(0, 42, 9)
	require.NoError(t, err)
	assert.Equal(t, types.Paddr(2000), paddr)

	// Past the newest committed xid: the newest version is still visible.
	paddr, err = r.Resolve(0, 42, 12)
	require.NoError(t, err)
	assert.Equal(t, types.Paddr(2000), paddr)

	// Before the oldest committed xid: no version existed yet.
	_, err = r.Resolve(0, 42, 3)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.KindOf(err))
}

func TestResolve_RepeatedResolveIsStable(t *testing.T) {
	dev := newMemDevice()
	dev.put(0, buildOmapIndexBlock(100, 1, 1))
	dev.put(1, buildOmapLeafBlock([]omapEntry{{oid: 100, xid: 1, paddr: 999}}))
	r := New(dev, testBlockSize)

	first, err := r.Resolve(0, 100, 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := r.Resolve(0, 100, 1)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_NotFound(t *testing.T) {
	dev := newMemDevice()
	dev.put(0, buildOmapLeafBlock([]omapEntry{{oid: 1, xid: 1, paddr: 100}}))
	r := New(dev, testBlockSize)

	_, err := r.Resolve(0, 2, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.KindOf(err))
}
