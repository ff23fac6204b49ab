package lsmtable

import (
	"github.com/bsm/lsmtable/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// Cache is the block cache collaborator consulted by tables. It must be
// safe for concurrent use and may return a miss for any previously
// inserted block.
type Cache interface {
	Get(tableID uint64, blockIdx int) (*Block, bool)
	Insert(tableID uint64, blockIdx int, b *Block)
}

// BlockCache is a size-bounded LRU Cache of decoded blocks.
type BlockCache struct {
	c *cache.Cache[*Block]
}

var _ Cache = (*BlockCache)(nil)

// NewBlockCache creates a cache holding up to maxSize bytes of blocks.
func NewBlockCache(maxSize int64) *BlockCache {
	return &BlockCache{c: cache.New[*Block](maxSize)}
}

// Get implements Cache.
func (c *BlockCache) Get(tableID uint64, blockIdx int) (*Block, bool) {
	if c == nil {
		return nil, false
	}
	return c.c.Get(tableID, blockIdx)
}

// Insert implements Cache.
func (c *BlockCache) Insert(tableID uint64, blockIdx int, b *Block) {
	if c == nil {
		return
	}
	c.c.Insert(tableID, blockIdx, b, int64(b.Size()))
}

// EvictTable drops all blocks of a table, e.g. once it was deleted.
func (c *BlockCache) EvictTable(tableID uint64) {
	if c == nil {
		return
	}
	c.c.EvictTable(tableID)
}

// Metrics returns cache statistics.
func (c *BlockCache) Metrics() cache.Metrics {
	if c == nil {
		return cache.Metrics{}
	}
	return c.c.Metrics()
}

// Collector returns a prometheus collector for the cache.
func (c *BlockCache) Collector(name string) prometheus.Collector {
	return cache.NewCollector(name, c.c)
}
