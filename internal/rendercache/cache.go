// Package rendercache is a content-addressed LRU store for computed
// render results, bounded by both entry count and total payload bytes.
package rendercache

import (
	"container/list"
	"sync"
	"time"

	"scadd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxEntries = 10
	defaultMaxBytes   = 50 << 20
)

// Config bounds the cache.
type Config struct {
	MaxEntries int
	MaxBytes   int64
}

// Stats is a read-only snapshot of cache occupancy and hit counters.
type Stats struct {
	Entries    int
	SizeBytes  int64
	MaxEntries int
	MaxBytes   int64
	Hits       uint64
	Misses     uint64
}

type entry struct {
	key        string
	result     *types.RenderResult
	size       int64
	lastAccess time.Time
}

// Cache owns every stored payload; callers receive shared read-only
// views and must not mutate result bytes.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	maxBytes   int64
	ll         *list.List // front = most recently used
	items      map[string]*list.Element
	size       int64
	hits       uint64
	misses     uint64
}

// New constructs a Cache, applying defaults for unset bounds.
func New(cfg Config) *Cache {
	c := &Cache{
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
	if c.maxEntries <= 0 {
		c.maxEntries = defaultMaxEntries
	}
	if c.maxBytes <= 0 {
		c.maxBytes = defaultMaxBytes
	}
	return c
}

// Get returns the cached result for key and marks it most recently
// used. The second return is false on miss.
func (c *Cache) Get(key string) (*types.RenderResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	e := el.Value.(*entry)
	e.lastAccess = time.Now()
	return e.result, true
}

// Put stores result under key and evicts least-recently-used entries
// until both bounds hold again. A payload larger than the byte bound on
// its own is rejected (returns false) rather than flushing the cache.
// Storing an existing key replaces its entry.
func (c *Cache) Put(key string, result *types.RenderResult) bool {
	size := int64(len(result.Bytes))
	if size > c.maxBytes {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		c.size += size - e.size
		e.result = result
		e.size = size
		e.lastAccess = time.Now()
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry{key: key, result: result, size: size, lastAccess: time.Now()})
		c.items[key] = el
		c.size += size
	}
	// Evict strictly from the cold end; list order is last-access
	// descending with insertion order preserved for untouched entries.
	for c.ll.Len() > c.maxEntries || c.size > c.maxBytes {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.removeLocked(back)
	}
	return true
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.size = 0
}

// Stats reports occupancy and hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:    c.ll.Len(),
		SizeBytes:  c.size,
		MaxEntries: c.maxEntries,
		MaxBytes:   c.maxBytes,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// Keys returns cache keys ordered most-recently-used first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).key)
	}
	return out
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.items, e.key)
	c.size -= e.size
}
