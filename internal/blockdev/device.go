// Package blockdev provides the block-level I/O collaborators a mounted
// APFS container reads through: a raw flat-image device and a DMG-wrapped
// one, both satisfying the same minimal Device interface, plus an optional
// LRU cache that sits in front of either.
package blockdev

import (
	"io"
	"os"

	"github.com/coreapfs/apfsro/internal/types"
)

// Device is the block-addressable storage a mount reads from. ReadBlock
// reads exactly blockSize bytes starting at the byte offset paddr*blockSize;
// callers never read partial blocks, since every on-disk APFS structure is
// block-aligned.
type Device interface {
	ReadBlock(paddr types.Paddr, blockSize uint32) ([]byte, error)
	// Size reports the device's total size in bytes.
	Size() int64
	io.Closer
}

// RawDevice reads directly from a flat image or block device node: the
// pread-like primitive the core's design assumes.
type RawDevice struct {
	file *os.File
	size int64
}

// OpenRaw opens path as a raw device/flat image.
func OpenRaw(path string) (*RawDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrIO, "blockdev.OpenRaw", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, types.NewError(types.ErrIO, "blockdev.OpenRaw", err)
	}
	return &RawDevice{file: f, size: st.Size()}, nil
}

func (d *RawDevice) ReadBlock(paddr types.Paddr, blockSize uint32) ([]byte, error) {
	buf := make([]byte, blockSize)
	off := int64(paddr) * int64(blockSize)
	if _, err := d.file.ReadAt(buf, off); err != nil {
		return nil, types.NewError(types.ErrIO, "blockdev.RawDevice.ReadBlock", err)
	}
	return buf, nil
}

func (d *RawDevice) Size() int64  { return d.size }
func (d *RawDevice) Close() error { return d.file.Close() }
