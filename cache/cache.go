// Package cache implements a sharded LRU cache of decoded table blocks
// keyed by (table id, block index).
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/swiss"
)

const numShards = 16

// Key identifies a cached block.
type Key struct {
	TableID  uint64
	BlockIdx int
}

func (k Key) String() string {
	return fmt.Sprintf("%d.%d", k.TableID, k.BlockIdx)
}

func hashKey(k *Key, seed uintptr) uintptr {
	const m = 11400714819323198485
	h := uint64(seed)
	h ^= k.TableID * m
	h ^= uint64(k.BlockIdx) * m
	return uintptr(h)
}

type entry[V any] struct {
	key        Key
	value      V
	size       int64
	next, prev *entry[V]
}

// entryList is a double-linked circular list of *entry elements.
type entryList[V any] struct {
	root entry[V]
}

func (l *entryList[V]) init() {
	l.root.next = &l.root
	l.root.prev = &l.root
}

func (l *entryList[V]) empty() bool {
	return l.root.next == &l.root
}

func (l *entryList[V]) back() *entry[V] {
	return l.root.prev
}

func (l *entryList[V]) insertAfter(e, at *entry[V]) {
	n := at.next
	at.next = e
	e.prev = at
	e.next = n
	n.prev = e
}

func (l *entryList[V]) remove(e *entry[V]) *entry[V] {
	if e == &l.root {
		panic("cannot remove root list node")
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil // avoid memory leaks
	e.prev = nil // avoid memory leaks
	return e
}

func (l *entryList[V]) pushFront(e *entry[V]) {
	l.insertAfter(e, &l.root)
}

func (l *entryList[V]) moveToFront(e *entry[V]) {
	if l.root.next == e {
		return
	}
	l.insertAfter(l.remove(e), &l.root)
}

// --------------------------------------------------------------------

type shard[V any] struct {
	maxSize int64

	mu   sync.Mutex
	m    swiss.Map[Key, *entry[V]]
	size int64
	lru  entryList[V]
}

func (s *shard[V]) init(maxSize int64) {
	s.maxSize = maxSize
	s.m.Init(16, swiss.WithHash[Key, *entry[V]](hashKey))
	s.lru.init()
}

func (s *shard[V]) get(k Key) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.m.Get(k); ok {
		s.lru.moveToFront(e)
		return e.value, true
	}
	var zero V
	return zero, false
}

// insert returns the number of evicted entries.
func (s *shard[V]) insert(k Key, v V, size int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.m.Get(k); ok {
		s.size += size - e.size
		e.value, e.size = v, size
		s.lru.moveToFront(e)
		return s.evict()
	}

	e := &entry[V]{key: k, value: v, size: size}
	s.m.Put(k, e)
	s.lru.pushFront(e)
	s.size += size
	return s.evict()
}

func (s *shard[V]) delete(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.m.Get(k); ok {
		s.unlink(e)
	}
}

func (s *shard[V]) evictTable(tableID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var victims []*entry[V]
	s.m.All(func(k Key, e *entry[V]) bool {
		if k.TableID == tableID {
			victims = append(victims, e)
		}
		return true
	})
	for _, e := range victims {
		s.unlink(e)
	}
}

func (s *shard[V]) evict() int {
	var n int
	for s.size > s.maxSize && !s.lru.empty() {
		s.unlink(s.lru.back())
		n++
	}
	return n
}

func (s *shard[V]) unlink(e *entry[V]) {
	s.lru.remove(e)
	s.m.Delete(e.key)
	s.size -= e.size
}

func (s *shard[V]) stats() (size int64, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.size, s.m.Len()
}

// --------------------------------------------------------------------

// Cache is a concurrent, size-bounded LRU cache. A nil *Cache is valid and
// caches nothing.
type Cache[V any] struct {
	shards [numShards]shard[V]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache holding up to maxSize bytes, as accounted by the
// sizes passed to Insert.
func New[V any](maxSize int64) *Cache[V] {
	c := &Cache[V]{}
	per := maxSize / numShards
	if per < 1 {
		per = 1
	}
	for i := range c.shards {
		c.shards[i].init(per)
	}
	return c
}

func (c *Cache[V]) shard(k Key) *shard[V] {
	return &c.shards[hashKey(&k, 0)%numShards]
}

// Get returns the cached value for a block.
func (c *Cache[V]) Get(tableID uint64, blockIdx int) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}

	k := Key{TableID: tableID, BlockIdx: blockIdx}
	v, ok := c.shard(k).get(k)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Insert stores a value of the given size, replacing any existing entry.
// Least recently used entries of the same shard are evicted to make room.
func (c *Cache[V]) Insert(tableID uint64, blockIdx int, v V, size int64) {
	if c == nil {
		return
	}

	k := Key{TableID: tableID, BlockIdx: blockIdx}
	if n := c.shard(k).insert(k, v, size); n != 0 {
		c.evictions.Add(int64(n))
	}
}

// Delete removes a single entry.
func (c *Cache[V]) Delete(tableID uint64, blockIdx int) {
	if c == nil {
		return
	}

	k := Key{TableID: tableID, BlockIdx: blockIdx}
	c.shard(k).delete(k)
}

// EvictTable removes all entries of a table.
func (c *Cache[V]) EvictTable(tableID uint64) {
	if c == nil {
		return
	}
	for i := range c.shards {
		c.shards[i].evictTable(tableID)
	}
}

// Metrics holds cache statistics.
type Metrics struct {
	Size      int64
	Count     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Metrics returns current statistics.
func (c *Cache[V]) Metrics() Metrics {
	var m Metrics
	if c == nil {
		return m
	}
	for i := range c.shards {
		size, count := c.shards[i].stats()
		m.Size += size
		m.Count += count
	}
	m.Hits = c.hits.Load()
	m.Misses = c.misses.Load()
	m.Evictions = c.evictions.Load()
	return m
}
