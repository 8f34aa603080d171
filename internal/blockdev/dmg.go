package blockdev

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/coreapfs/apfsro/internal/types"
)

// GPT header and partition entry offsets, per the UEFI specification.
const (
	gptHeaderOffset       = 512  // LBA 1: primary GPT header
	gptEntrySize          = 128  // bytes per partition entry
	gptEntriesStartOffset = 2048 // LBA 4: standard partition entries location
	gptAPFSOffset         = 20480
	apfsMagicOffset       = 32 // nx_o (32 bytes) precedes nx_magic
	scanBlockSize         = 4096
)

// apfsGPTPartitionUUID is the GPT partition-type GUID Apple assigns to APFS
// containers (7C3457EF-0000-11AA-AA11-00306543ECAC), as its 16 raw
// little-endian-encoded bytes.
var apfsGPTPartitionUUID = []byte{
	0xEF, 0x57, 0x34, 0x7C, 0x00, 0x00, 0xAA, 0x11,
	0xAA, 0x11, 0x00, 0x30, 0x65, 0x43, 0xEC, 0xAC,
}

// DMGDevice reads the APFS container embedded inside an Apple Disk Image,
// resolving the container's byte offset once at open time rather than
// parsing the image's full UDIF block map: research and forensic DMGs
// commonly carry a single GPT partition wrapping one APFS container, and
// that's the layout this collaborator targets.
type DMGDevice struct {
	file   *os.File
	size   int64
	offset int64
	log    *logrus.Entry
}

// OpenDMG opens path and locates the APFS container inside it, first by
// parsing a GPT partition table and falling back to a magic-number scan at
// well-known offsets, then at every 4096-byte boundary within the first
// 2 MiB of the image.
func OpenDMG(path string, log *logrus.Entry) (*DMGDevice, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrIO, "blockdev.OpenDMG", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, types.NewError(types.ErrIO, "blockdev.OpenDMG", err)
	}

	d := &DMGDevice{file: f, size: st.Size(), log: log}
	offset, err := d.detectAPFSOffset()
	if err != nil {
		f.Close()
		return nil, err
	}
	d.offset = offset
	return d, nil
}

func (d *DMGDevice) detectAPFSOffset() (int64, error) {
	buf := make([]byte, 2*1024*1024)
	n, err := d.file.ReadAt(buf, 0)
	if err != nil && n == 0 {
		return 0, types.NewError(types.ErrIO, "blockdev.detectAPFSOffset", err)
	}
	buf = buf[:n]

	if off, ok := d.scanGPTPartitionTable(buf); ok {
		d.log.WithField("offset", off).Debug("apfs container located via GPT partition table")
		return off, nil
	}

	for _, off := range []int64{0, gptAPFSOffset} {
		if d.hasMagicAt(buf, off) {
			d.log.WithField("offset", off).Debug("apfs container located at well-known offset")
			return off, nil
		}
	}

	for off := int64(0); off+apfsMagicOffset+4 <= int64(len(buf)); off += scanBlockSize {
		if d.hasMagicAt(buf, off) {
			d.log.WithField("offset", off).Debug("apfs container located via block scan")
			return off, nil
		}
	}

	return 0, types.NewError(types.ErrNotAnApfs, "blockdev.detectAPFSOffset", nil)
}

func (d *DMGDevice) hasMagicAt(buf []byte, off int64) bool {
	start := off + apfsMagicOffset
	if start < 0 || start+4 > int64(len(buf)) {
		return false
	}
	return binary.LittleEndian.Uint32(buf[start:start+4]) == types.NxMagic
}

// scanGPTPartitionTable looks for a GPT header signature and, if found,
// returns the byte offset at which the first partition tagged with the APFS
// partition-type GUID starts.
func (d *DMGDevice) scanGPTPartitionTable(buf []byte) (int64, bool) {
	if len(buf) < gptHeaderOffset+8 || string(buf[gptHeaderOffset:gptHeaderOffset+8]) != "EFI PART" {
		return 0, false
	}
	for i := 0; i < 128; i++ {
		entryOff := gptEntriesStartOffset + i*gptEntrySize
		if entryOff+gptEntrySize > len(buf) {
			break
		}
		entry := buf[entryOff : entryOff+gptEntrySize]
		if !bytes.Equal(entry[0:16], apfsGPTPartitionUUID) {
			continue
		}
		startLBA := binary.LittleEndian.Uint64(entry[32:40])
		return int64(startLBA) * 512, true
	}
	return 0, false
}

func (d *DMGDevice) ReadBlock(paddr types.Paddr, blockSize uint32) ([]byte, error) {
	buf := make([]byte, blockSize)
	off := d.offset + int64(paddr)*int64(blockSize)
	if _, err := d.file.ReadAt(buf, off); err != nil {
		return nil, types.NewError(types.ErrIO, "blockdev.DMGDevice.ReadBlock", err)
	}
	return buf, nil
}

func (d *DMGDevice) Size() int64  { return d.size - d.offset }
func (d *DMGDevice) Close() error { return d.file.Close() }
