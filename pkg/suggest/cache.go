package suggest

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/bastiangx/autocomplete/pkg/corpus"
	"github.com/charmbracelet/log"
)

// Cache maps a normalized prefix to its ranked result. Values are never modified after
// insertion. With maxEntries == 0 the cache grows without bound, otherwise the least
// recently used prefix is evicted once the limit is reached.
type Cache struct {
	entries     map[string][]corpus.WordEntry
	accessTime  map[string]int64
	accessCount int64
	maxEntries  int
	mu          sync.RWMutex

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func NewCache(maxEntries int) *Cache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Cache{
		entries:    make(map[string][]corpus.WordEntry),
		accessTime: make(map[string]int64),
		maxEntries: maxEntries,
	}
}

func (c *Cache) bounded() bool {
	return c.maxEntries > 0
}

// Get returns the cached result for prefix.
func (c *Cache) Get(prefix string) ([]corpus.WordEntry, bool) {
	var (
		result []corpus.WordEntry
		ok     bool
	)
	if c.bounded() {
		// access times are written on read
		c.mu.Lock()
		result, ok = c.entries[prefix]
		if ok {
			c.markAccessed(prefix)
		}
		c.mu.Unlock()
	} else {
		c.mu.RLock()
		result, ok = c.entries[prefix]
		c.mu.RUnlock()
	}

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return result, ok
}

// Add stores result under prefix unless another caller got there first, and returns
// whichever value is now cached.
func (c *Cache) Add(prefix string, result []corpus.WordEntry) []corpus.WordEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[prefix]; ok {
		return existing
	}
	if c.bounded() {
		if len(c.entries) >= c.maxEntries {
			c.evictLRU()
		}
		c.markAccessed(prefix)
	}
	c.entries[prefix] = result
	return result
}

// Len returns the number of cached prefixes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stats() map[string]int {
	return map[string]int{
		"cacheEntries":   c.Len(),
		"maxCacheSize":   c.maxEntries,
		"cacheHits":      int(c.hits.Load()),
		"cacheMisses":    int(c.misses.Load()),
		"cacheEvictions": int(c.evictions.Load()),
	}
}

func (c *Cache) markAccessed(prefix string) {
	c.accessCount++
	c.accessTime[prefix] = c.accessCount
}

func (c *Cache) evictLRU() {
	var oldest string
	var oldestTime int64 = math.MaxInt64

	for prefix, t := range c.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldest = prefix
		}
	}

	if oldestTime != math.MaxInt64 {
		delete(c.entries, oldest)
		delete(c.accessTime, oldest)
		c.evictions.Add(1)
		log.Debugf("Evicted prefix '%s' from cache", oldest)
	}
}
