// Package listing caches directory listings as content pointer to URL
// mappings and keeps them coherent with moves.
package listing

import (
	"container/list"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Metrics observes cache behaviour. A nil Metrics disables collection.
type Metrics interface {
	RecordHit()
	RecordMiss()
	RecordEvictions(reason string, n int)
	RecordSize(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordHit() {}
func (noopMetrics) RecordMiss() {}
func (noopMetrics) RecordEvictions(string, int) {}
func (noopMetrics) RecordSize(int) {}

// Config holds cache limits
type Config struct {
	// MaxEntries bounds the number of cached listings (LRU eviction)
	MaxEntries int
	// TTL expires listings; zero keeps them until evicted
	TTL time.Duration
}

// DefaultConfig returns the default cache limits
func DefaultConfig() Config {
	return Config{MaxEntries: 256}
}

// Generation marks a point in the cache's eviction history
type Generation uint64

// Cache is an LRU of listings with an eviction index by directory.
// It is safe for concurrent use.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	metrics    Metrics

	mu      sync.RWMutex
	entries map[domain.ListingKey]*cacheEntry
	byDir   map[string]map[domain.ListingKey]struct{}
	lru     *list.List
	hits    uint64
	misses  uint64

	// gen counts evictions. evicted and trees hold the generation of the
	// latest Evict and EvictTree per directory; snapshots older than floor
	// are treated as evicted.
	gen     uint64
	floor   uint64
	evicted map[string]uint64
	trees   map[string]uint64
}

type cacheEntry struct {
	key      domain.ListingKey
	mapping  domain.Mapping
	storedAt time.Time
	node     *list.Element
}

// Ensure Cache implements ListingEvicter
var _ ports.ListingEvicter = (*Cache)(nil)

// NewCache creates an empty cache. metrics may be nil.
func NewCache(cfg Config, metrics Metrics) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Cache{
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        time.Now,
		metrics:    metrics,
		entries:    make(map[domain.ListingKey]*cacheEntry),
		byDir:      make(map[string]map[domain.ListingKey]struct{}),
		lru:        list.New(),
		evicted:    make(map[string]uint64),
		trees:      make(map[string]uint64),
	}
}

// Get returns a copy of the cached mapping for key
func (c *Cache) Get(key domain.ListingKey) (domain.Mapping, bool) {
	key.Directory = filepath.Clean(key.Directory)

	// Lock, not RLock: a hit reorders the LRU list
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.remove(e)
		c.metrics.RecordEvictions("expired", 1)
		ok = false
	}
	if !ok {
		c.misses++
		c.metrics.RecordMiss()
		return nil, false
	}

	c.lru.MoveToFront(e.node)
	c.hits++
	c.metrics.RecordHit()
	return maps.Clone(e.mapping), true
}

// Put stores a copy of mapping under key, evicting the least recently
// used listing when full
func (c *Cache) Put(key domain.ListingKey, mapping domain.Mapping) {
	key.Directory = filepath.Clean(key.Directory)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, mapping)
}

// Generation returns the current eviction generation. Take it before
// reading the filesystem and hand it to PutAt.
func (c *Cache) Generation() Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Generation(c.gen)
}

// PutAt stores mapping like Put unless an eviction covering key happened
// after gen: the listing may then predate a move and is dropped. It
// reports whether the mapping was stored.
func (c *Cache) PutAt(key domain.ListingKey, mapping domain.Mapping, gen Generation) bool {
	key.Directory = filepath.Clean(key.Directory)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.evictedSince(key, uint64(gen)) {
		c.metrics.RecordEvictions("stale", 1)
		return false
	}
	c.put(key, mapping)
	return true
}

func (c *Cache) put(key domain.ListingKey, mapping domain.Mapping) {
	if e, ok := c.entries[key]; ok {
		e.mapping = maps.Clone(mapping)
		e.storedAt = c.now()
		c.lru.MoveToFront(e.node)
		return
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*cacheEntry))
		c.metrics.RecordEvictions("capacity", 1)
	}

	e := &cacheEntry{key: key, mapping: maps.Clone(mapping), storedAt: c.now()}
	e.node = c.lru.PushFront(e)
	c.entries[key] = e
	if c.byDir[key.Directory] == nil {
		c.byDir[key.Directory] = make(map[domain.ListingKey]struct{})
	}
	c.byDir[key.Directory][key] = struct{}{}
	c.metrics.RecordSize(len(c.entries))
}

// evictedSince reports whether an eviction after gen dropped, or would
// have dropped, a listing under key. Must be called with mu held.
func (c *Cache) evictedSince(key domain.ListingKey, gen uint64) bool {
	if gen < c.floor {
		return true
	}
	if c.evicted[key.Directory] > gen {
		return true
	}
	for p := key.Directory; ; p = filepath.Dir(p) {
		if c.trees[p] > gen {
			return true
		}
		if p == filepath.Dir(p) {
			break
		}
	}
	if key.Mode.Recursive {
		for d, g := range c.evicted {
			if g > gen && domain.IsWithin(d, key.Directory) {
				return true
			}
		}
	}
	return false
}

// Evict drops every listing of dir plus every recursive listing of an
// ancestor of dir, since those include dir's contents.
func (c *Cache) Evict(dir string) {
	dir = filepath.Clean(dir)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict(dir)
	c.evicted[dir] = c.gen
	c.trimHistory()
}

// EvictTree drops what Evict drops plus every listing of a directory
// below dir, for when dir itself moved
func (c *Cache) EvictTree(dir string) {
	dir = filepath.Clean(dir)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict(dir)
	c.evicted[dir] = c.gen
	c.trees[dir] = c.gen

	n := 0
	for d, keys := range c.byDir {
		if d == dir || !domain.IsWithin(d, dir) {
			continue
		}
		for key := range keys {
			c.remove(c.entries[key])
			n++
		}
	}
	if n > 0 {
		c.metrics.RecordEvictions("invalidated", n)
		c.metrics.RecordSize(len(c.entries))
	}
	c.trimHistory()
}

// evict advances the generation and drops the listings Evict covers.
// Must be called with mu held.
func (c *Cache) evict(dir string) {
	c.gen++

	n := 0
	for key := range c.byDir[dir] {
		c.remove(c.entries[key])
		n++
	}
	for p := filepath.Dir(dir); ; p = filepath.Dir(p) {
		for key := range c.byDir[p] {
			if key.Mode.Recursive {
				c.remove(c.entries[key])
				n++
			}
		}
		if p == filepath.Dir(p) {
			break
		}
	}
	if n > 0 {
		c.metrics.RecordEvictions("invalidated", n)
		c.metrics.RecordSize(len(c.entries))
	}
}

// trimHistory forgets per-directory generations once there are more of
// them than cached listings allow, raising the floor instead. Must be
// called with mu held.
func (c *Cache) trimHistory() {
	if len(c.evicted)+len(c.trees) <= 4*c.maxEntries {
		return
	}
	c.floor = c.gen
	clear(c.evicted)
	clear(c.trees)
}

// Purge drops every listing
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[domain.ListingKey]*cacheEntry)
	c.byDir = make(map[string]map[domain.ListingKey]struct{})
	c.lru.Init()
	c.gen++
	c.floor = c.gen
	clear(c.evicted)
	clear(c.trees)
	if n > 0 {
		c.metrics.RecordEvictions("purged", n)
		c.metrics.RecordSize(0)
	}
}

// Len returns the number of cached listings
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// remove must be called with mu held
func (c *Cache) remove(e *cacheEntry) {
	if e == nil {
		return
	}
	c.lru.Remove(e.node)
	delete(c.entries, e.key)
	if keys := c.byDir[e.key.Directory]; keys != nil {
		delete(keys, e.key)
		if len(keys) == 0 {
			delete(c.byDir, e.key.Directory)
		}
	}
}
