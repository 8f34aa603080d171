package blockdev

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/coreapfs/apfsro/internal/types"
)

// CachedDevice wraps a Device with an LRU cache of recently read blocks, so
// repeated descents over hot nodes (a root node revisited on every lookup,
// the shared ancestors of an inode branch) don't re-issue the same block
// read. The underlying ARCCache is safe for concurrent use, matching the
// mount handle's own concurrency contract.
type CachedDevice struct {
	dev   Device
	cache *lru.ARCCache
}

// NewCachedDevice wraps dev with an LRU of the given block capacity. A
// non-positive size is treated as a capacity of one block.
func NewCachedDevice(dev Device, size int) *CachedDevice {
	if size <= 0 {
		size = 1
	}
	cache, _ := lru.NewARC(size)
	return &CachedDevice{dev: dev, cache: cache}
}

func (c *CachedDevice) ReadBlock(paddr types.Paddr, blockSize uint32) ([]byte, error) {
	if v, ok := c.cache.Get(paddr); ok {
		if buf, ok := v.([]byte); ok && len(buf) == int(blockSize) {
			return buf, nil
		}
	}
	buf, err := c.dev.ReadBlock(paddr, blockSize)
	if err != nil {
		return nil, err
	}
	c.cache.Add(paddr, buf)
	return buf, nil
}

func (c *CachedDevice) Size() int64  { return c.dev.Size() }
func (c *CachedDevice) Close() error { return c.dev.Close() }
