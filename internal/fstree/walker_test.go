package fstree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreapfs/apfsro/internal/types"
)

const testBlockSize = 4096
const headerSize = 56

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

type kv struct{ key, value []byte }

// buildVarLeafBlock writes a variable-kv leaf node (every fs-tree node)
// whose entries are already in ascending key order.
func buildVarLeafBlock(entries []kv) []byte {
	return buildVarBlock(entries, true, 0)
}

func buildVarBlock(entries []kv, leaf bool, level uint16) []byte {
	buf := make([]byte, testBlockSize)
	var keyZone, valZone, toc []byte
	for _, e := range entries {
		koff := len(keyZone)
		keyZone = append(keyZone, e.key...)
		valZone = append(valZone, e.value...)
		tocEntry := make([]byte, 8)
		binary.LittleEndian.PutUint16(tocEntry[0:2], uint16(koff))
		binary.LittleEndian.PutUint16(tocEntry[2:4], uint16(len(e.key)))
		toc = append(toc, tocEntry...)
	}
	// value offsets are end-relative from the end of the value zone.
	cum := 0
	for i := len(entries) - 1; i >= 0; i-- {
		cum += len(entries[i].value)
		binary.LittleEndian.PutUint16(toc[i*8+4:i*8+6], uint16(cum))
		binary.LittleEndian.PutUint16(toc[i*8+6:i*8+8], uint16(len(entries[i].value)))
	}

	var flags uint16 // 0 = variable kv, non-root
	if leaf {
		flags |= types.BtnodeLeaf
	}
	binary.LittleEndian.PutUint16(buf[32:34], flags)
	binary.LittleEndian.PutUint16(buf[34:36], level)
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(entries)))
	binary.LittleEndian.PutUint16(buf[40:42], 0)
	binary.LittleEndian.PutUint16(buf[42:44], uint16(len(toc)))
	binary.LittleEndian.PutUint16(buf[44:46], uint16(len(keyZone)))

	data := buf[headerSize:]
	copy(data[0:], toc)
	copy(data[len(toc):], keyZone)
	copy(data[len(data)-len(valZone):], valZone)
	return buf
}

func fsKey(oid uint64, typ types.JObjTypes, extra ...byte) []byte {
	hdr := (oid & types.ObjIdMask) | (uint64(typ) << types.ObjTypeShift)
	b := make([]byte, 8+len(extra))
	binary.LittleEndian.PutUint64(b[0:8], hdr)
	copy(b[8:], extra)
	return b
}

func inodeVal(parent uint64, mode uint16, dstreamSize uint64) []byte {
	v := make([]byte, inodeValFixedSize)
	binary.LittleEndian.PutUint64(v[0:8], parent)
	binary.LittleEndian.PutUint16(v[80:82], mode)
	if dstreamSize == 0 {
		return v
	}
	// one xfield: x_type=INO_EXT_TYPE_DSTREAM, x_size=8(dstream.size)+32(rest)=40
	xf := make([]byte, 4+4+40)
	binary.LittleEndian.PutUint16(xf[0:2], 1) // num_exts
	xf[4] = types.InoExtTypeDstream
	binary.LittleEndian.PutUint16(xf[6:8], 40)
	binary.LittleEndian.PutUint64(xf[8:16], dstreamSize)
	return append(v, xf...)
}

func drecVal(fileId uint64, flags uint16) []byte {
	v := make([]byte, 18)
	binary.LittleEndian.PutUint64(v[0:8], fileId)
	binary.LittleEndian.PutUint16(v[16:18], flags)
	return v
}

func extentValBytes(lenAndFlags, physBlock uint64) []byte {
	v := make([]byte, 24)
	binary.LittleEndian.PutUint64(v[0:8], lenAndFlags)
	binary.LittleEndian.PutUint64(v[8:16], physBlock)
	return v
}

func TestGetInodeBranch_SingleLeaf(t *testing.T) {
	dev := newMemDevice()
	leaf := buildVarLeafBlock([]kv{
		{fsKey(2, types.ApfsTypeInode), inodeVal(1, 0o040000, 0)},
	})
	dev.put(0, leaf)
	w := NewWalker(dev, 0, 0, testBlockSize)

	node, err := w.GetInodeBranch(0, 2)
	require.NoError(t, err)
	assert.True(t, node.IsLeaf())
}

func TestListDirectory_EmitsRegularAndDirectoryEntries(t *testing.T) {
	dev := newMemDevice()
	leaf := buildVarLeafBlock([]kv{
		{fsKey(2, types.ApfsTypeInode), inodeVal(1, 0o040000, 0)},
		{fsKey(2, types.ApfsTypeDirRec, []byte("hello.txt\x00")...), drecVal(100, uint16(types.DtReg))},
		{fsKey(2, types.ApfsTypeDirRec, []byte("sub\x00")...), drecVal(101, uint16(types.DtDir))},
	})
	dev.put(0, leaf)
	w := NewWalker(dev, 0, 0, testBlockSize)

	branch, err := w.GetInodeBranch(0, 2)
	require.NoError(t, err)

	entries, err := w.ListDirectory(branch, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(100), entries[0].ChildIno)
	assert.Equal(t, KindFile, entries[0].Kind)
	assert.Equal(t, uint64(101), entries[1].ChildIno)
	assert.Equal(t, KindDirectory, entries[1].Kind)
}

func TestDecodeInode_FindsRecordAndSize(t *testing.T) {
	dev := newMemDevice()
	leaf := buildVarLeafBlock([]kv{
		{fsKey(100, types.ApfsTypeInode), inodeVal(2, 0o100000, 5)},
	})
	dev.put(0, leaf)
	w := NewWalker(dev, 0, 0, testBlockSize)

	branch, err := w.GetInodeBranch(0, 100)
	require.NoError(t, err)

	inode, err := w.DecodeInode(branch, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), inode.Size)
	assert.True(t, inode.JInodeValT.Mode&types.ModeIFMT == types.ModeIFREG)
}

func TestReadFile_ShortReadWithinOneBlock(t *testing.T) {
	dev := newMemDevice()
	content := []byte("hello")
	fileBlock := make([]byte, testBlockSize)
	copy(fileBlock, content)
	dev.put(1, fileBlock)

	leaf := buildVarLeafBlock([]kv{
		{fsKey(100, types.ApfsTypeInode), inodeVal(2, 0o100000, uint64(len(content)))},
		{fsKey(100, types.ApfsTypeFileExtent, encodeU64(0)...), extentValBytes(uint64(len(content)), 1)},
	})
	dev.put(0, leaf)
	w := NewWalker(dev, 0, 0, testBlockSize)

	branch, err := w.GetInodeBranch(0, 100)
	require.NoError(t, err)

	got, err := w.ReadFile(branch, 100, uint64(len(content)), 0, 16)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// buildOmapLeafBlock writes a fixed-kv leaf omap node so the walker can
// resolve the logical child oids a non-leaf fs-tree node stores.
func buildOmapLeafBlock(entries map[uint64]types.Paddr, xid uint64) []byte {
	oids := make([]uint64, 0, len(entries))
	for oid := range entries {
		oids = append(oids, oid)
	}
	for i := 0; i < len(oids); i++ {
		for j := i + 1; j < len(oids); j++ {
			if oids[j] < oids[i] {
				oids[i], oids[j] = oids[j], oids[i]
			}
		}
	}

	buf := make([]byte, testBlockSize)
	var keyZone, valZone, toc []byte
	for _, oid := range oids {
		koff := len(keyZone)
		kbuf := make([]byte, 16)
		binary.LittleEndian.PutUint64(kbuf[0:8], oid)
		binary.LittleEndian.PutUint64(kbuf[8:16], xid)
		keyZone = append(keyZone, kbuf...)

		vbuf := make([]byte, 16)
		binary.LittleEndian.PutUint64(vbuf[8:16], uint64(entries[oid]))
		valZone = append(valZone, vbuf...)

		tocEntry := make([]byte, 4)
		binary.LittleEndian.PutUint16(tocEntry[0:2], uint16(koff))
		toc = append(toc, tocEntry...)
	}
	for i := range oids {
		voff := len(valZone) - i*16
		binary.LittleEndian.PutUint16(toc[i*4+2:i*4+4], uint16(voff))
	}

	binary.LittleEndian.PutUint16(buf[32:34], types.BtnodeLeaf|types.BtnodeFixedKvSize)
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(oids)))
	binary.LittleEndian.PutUint16(buf[42:44], uint16(len(toc)))
	binary.LittleEndian.PutUint16(buf[44:46], uint16(len(keyZone)))

	data := buf[headerSize:]
	copy(data[0:], toc)
	copy(data[len(toc):], keyZone)
	copy(data[len(data)-len(valZone):], valZone)
	return buf
}

// TestGetInodeBranch_StraddlingRecordsReturnNonLeaf covers an inode whose
// records span two leaves: the branch comes back as the non-leaf common
// ancestor, and both inode decode and extent reads still work through it.
func TestGetInodeBranch_StraddlingRecordsReturnNonLeaf(t *testing.T) {
	const (
		indexPaddr   = types.Paddr(0)
		leafAPaddr   = types.Paddr(1)
		leafBPaddr   = types.Paddr(2)
		contentPaddr = types.Paddr(3)
		omapPaddr    = types.Paddr(5)
		leafAOid     = uint64(70)
		leafBOid     = uint64(71)
		xid          = uint64(1)
	)
	content := []byte("hello")

	dev := newMemDevice()
	fileBlock := make([]byte, testBlockSize)
	copy(fileBlock, content)
	dev.put(contentPaddr, fileBlock)

	dev.put(leafAPaddr, buildVarLeafBlock([]kv{
		{fsKey(100, types.ApfsTypeInode), inodeVal(2, 0o100000, uint64(len(content)))},
	}))
	dev.put(leafBPaddr, buildVarLeafBlock([]kv{
		{fsKey(100, types.ApfsTypeFileExtent, encodeU64(0)...), extentValBytes(uint64(len(content)), uint64(contentPaddr))},
	}))
	dev.put(indexPaddr, buildVarBlock([]kv{
		{fsKey(100, types.ApfsTypeInode), encodeU64(leafAOid)},
		{fsKey(100, types.ApfsTypeFileExtent, encodeU64(0)...), encodeU64(leafBOid)},
	}, false, 1))
	dev.put(omapPaddr, buildOmapLeafBlock(map[uint64]types.Paddr{
		leafAOid: leafAPaddr,
		leafBOid: leafBPaddr,
	}, xid))

	w := NewWalker(dev, omapPaddr, types.XidT(xid), testBlockSize)

	branch, err := w.GetInodeBranch(indexPaddr, 100)
	require.NoError(t, err)
	assert.False(t, branch.IsLeaf())

	inode, err := w.DecodeInode(branch, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(content)), inode.Size)

	got, err := w.ReadFile(branch, 100, inode.Size, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
