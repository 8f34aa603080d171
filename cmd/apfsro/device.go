package apfsro

import (
	"strings"

	"github.com/coreapfs/apfsro/internal/blockdev"
	"github.com/coreapfs/apfsro/internal/mount"
)

// openMount opens devicePath (a raw device/flat image, or a .dmg when --dmg
// is set) and mounts it, optionally wrapping the device in an LRU cache per
// --cache-mb. The caller owns the returned handle and must Unmount it.
func openMount(devicePath string) (*mount.Handle, error) {
	var dev blockdev.Device
	var err error
	if useDMG {
		dev, err = blockdev.OpenDMG(devicePath, log.WithField("device", devicePath))
	} else {
		dev, err = blockdev.OpenRaw(devicePath)
	}
	if err != nil {
		return nil, err
	}

	if cacheMB > 0 {
		// A block is blockdev-sized; container block size isn't known
		// until Mount reads the superblock, so this estimates entries
		// from the minimum block size, trading a slightly oversized
		// cache for not needing a two-phase mount.
		const assumedBlockSize = 4096
		entries := (cacheMB * 1024 * 1024) / assumedBlockSize
		dev = blockdev.NewCachedDevice(dev, entries)
	}

	return mount.Mount(dev)
}

// resolvePath walks path's components from the volume root via repeated
// Lookup calls, returning the inode number of the final component. An empty
// or "/" path resolves to the root directory itself.
func resolvePath(h *mount.Handle, path string) (uint64, error) {
	ino := mount.RootInode
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		next, err := h.Lookup(ino, part)
		if err != nil {
			return 0, err
		}
		ino = next
	}
	return ino, nil
}
