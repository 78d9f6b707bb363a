// Package filecache implements the multi-tier file and directory-listing
// cache that sits in front of the workspace file tools. Content is routed
// into a small/medium/large tier by size, and directory listings live in a
// separate tier keyed by their own composite key. Eviction is priority-aware:
// entries accessed more than a handful of times survive memory pressure
// longer than cold ones.
package filecache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Priority classifies how aggressively an entry should be protected from
// eviction. It is recomputed on every access.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
)

func priorityFor(accessCount int64) Priority {
	switch {
	case accessCount > 10:
		return PriorityHigh
	case accessCount > 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Config controls tier thresholds and memory ceilings.
type Config struct {
	SmallThresholdBytes  int64 // default 50KB
	MediumThresholdBytes int64 // default 500KB
	LargeThresholdBytes  int64 // default 2MB; files above this are never cached
	SmallTierCapacity    int   // default 1000 entries, LRU
	MaxMemoryUsageBytes  int64 // default 100MB
	MediumTTL            time.Duration // default 300s
	LargeTTL             time.Duration // default 600s
}

func (c *Config) applyDefaults() {
	if c.SmallThresholdBytes <= 0 {
		c.SmallThresholdBytes = 50 * 1024
	}
	if c.MediumThresholdBytes <= 0 {
		c.MediumThresholdBytes = 500 * 1024
	}
	if c.LargeThresholdBytes <= 0 {
		c.LargeThresholdBytes = 2 * 1024 * 1024
	}
	if c.SmallTierCapacity <= 0 {
		c.SmallTierCapacity = 1000
	}
	if c.MaxMemoryUsageBytes <= 0 {
		c.MaxMemoryUsageBytes = 100 * 1024 * 1024
	}
	if c.MediumTTL <= 0 {
		c.MediumTTL = 300 * time.Second
	}
	if c.LargeTTL <= 0 {
		c.LargeTTL = 600 * time.Second
	}
}

type entry struct {
	data         []byte
	insertedAt   time.Time
	lastAccessed time.Time
	accessCount  int64
	sizeBytes    int64
	priority     Priority
	lruElem      *list.Element // only used by the small tier
}

// TierStats reports hit/miss counters for one tier.
type TierStats struct {
	Hits   uint64
	Misses uint64
}

// Stats is a snapshot of cache-wide counters.
type Stats struct {
	Small, Medium, Large, Directory TierStats
	Evictions                       uint64
	MemoryBytes                     int64
}

// OverallHitRate returns the combined hit rate across the three content tiers.
func (s Stats) OverallHitRate() float64 {
	hits := s.Small.Hits + s.Medium.Hits + s.Large.Hits
	total := hits + s.Small.Misses + s.Medium.Misses + s.Large.Misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Cache is the multi-tier file/directory cache described in SPEC_FULL.md §4.1.
type Cache struct {
	cfg Config

	smallMu   sync.Mutex
	small     map[string]*entry
	smallLRU  *list.List // front = most recently used

	mediumMu sync.RWMutex
	medium   map[string]*entry

	largeMu sync.RWMutex
	large   map[string]*entry

	dirMu sync.RWMutex
	dir   map[string]*entry

	statsMu sync.Mutex
	stats   Stats
}

// New constructs a Cache with the given configuration (zero-value fields take
// spec defaults).
func New(cfg Config) *Cache {
	cfg.applyDefaults()
	return &Cache{
		cfg:      cfg,
		small:    make(map[string]*entry),
		smallLRU: list.New(),
		medium:   make(map[string]*entry),
		large:    make(map[string]*entry),
		dir:      make(map[string]*entry),
	}
}

// GetFile probes small, then medium, then large tiers for key, in that order.
func (c *Cache) GetFile(key string) ([]byte, bool) {
	if data, ok := c.getSmall(key); ok {
		return data, true
	}
	if data, ok := c.getFrom(&c.mediumMu, c.medium, key, &c.stats.Medium); ok {
		return data, true
	}
	if data, ok := c.getFrom(&c.largeMu, c.large, key, &c.stats.Large); ok {
		return data, true
	}
	return nil, false
}

// PutFile inserts data into the tier matching its size. Files larger than the
// large threshold are not cached at all.
func (c *Cache) PutFile(key string, data []byte) {
	size := int64(len(data))
	switch {
	case size <= c.cfg.SmallThresholdBytes:
		c.putSmall(key, data)
	case size <= c.cfg.MediumThresholdBytes:
		c.putInto(&c.mediumMu, c.medium, key, data, 0)
	case size <= c.cfg.LargeThresholdBytes:
		c.putInto(&c.largeMu, c.large, key, data, 0)
	default:
		return
	}
	c.maybeEvict()
}

// GetDirListing retrieves a cached directory listing by its composite key.
func (c *Cache) GetDirListing(key string) ([]byte, bool) {
	return c.getFrom(&c.dirMu, c.dir, key, &c.stats.Directory)
}

// PutDirListing caches a directory listing.
func (c *Cache) PutDirListing(key string, data []byte) {
	c.putInto(&c.dirMu, c.dir, key, data, 0)
	c.maybeEvict()
}

// DirKey builds the canonical directory-listing cache key.
func DirKey(absPath string, maxItems int, includeHidden bool) string {
	h := sha256.New()
	h.Write([]byte(absPath))
	sum := hex.EncodeToString(h.Sum(nil))[:16]
	hidden := "0"
	if includeHidden {
		hidden = "1"
	}
	return "list_files:" + absPath + ":" + sum + ":" + itoa(maxItems) + ":" + hidden
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// InvalidatePrefix removes every entry (in every tier) whose key begins with
// prefix. Called after write_file/edit_file/delete_file to preserve cache
// coherence (testable property 3 in SPEC_FULL.md §8).
func (c *Cache) InvalidatePrefix(prefix string) {
	c.smallMu.Lock()
	for k, e := range c.small {
		if hasPrefix(k, prefix) {
			c.smallLRU.Remove(e.lruElem)
			delete(c.small, k)
		}
	}
	c.smallMu.Unlock()

	invalidate := func(mu *sync.RWMutex, m map[string]*entry) {
		mu.Lock()
		defer mu.Unlock()
		for k := range m {
			if hasPrefix(k, prefix) {
				delete(m, k)
			}
		}
	}
	invalidate(&c.mediumMu, c.medium)
	invalidate(&c.largeMu, c.large)
	invalidate(&c.dirMu, c.dir)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Stats returns a snapshot of cache counters plus current memory usage.
func (c *Cache) Stats() Stats {
	c.statsMu.Lock()
	snap := c.stats
	c.statsMu.Unlock()
	snap.MemoryBytes = c.currentMemoryUsage()
	return snap
}

func (c *Cache) currentMemoryUsage() int64 {
	var total int64
	sum := func(mu sync.Locker, m map[string]*entry) {
		mu.Lock()
		for _, e := range m {
			total += e.sizeBytes
		}
		mu.Unlock()
	}
	sum(&c.smallMu, c.small)
	sum(&c.mediumMu, c.medium)
	sum(&c.largeMu, c.large)
	sum(&c.dirMu, c.dir)
	return total
}

// --- small tier (bounded LRU) ---

func (c *Cache) getSmall(key string) ([]byte, bool) {
	c.smallMu.Lock()
	defer c.smallMu.Unlock()
	e, ok := c.small[key]
	if !ok {
		c.recordMiss(&c.stats.Small)
		return nil, false
	}
	e.lastAccessed = time.Now()
	e.accessCount++
	e.priority = priorityFor(e.accessCount)
	c.smallLRU.MoveToFront(e.lruElem)
	c.recordHit(&c.stats.Small)
	return e.data, true
}

func (c *Cache) putSmall(key string, data []byte) {
	c.smallMu.Lock()
	defer c.smallMu.Unlock()

	if existing, ok := c.small[key]; ok {
		existing.data = data
		existing.sizeBytes = int64(len(data))
		existing.lastAccessed = time.Now()
		c.smallLRU.MoveToFront(existing.lruElem)
		return
	}

	now := time.Now()
	e := &entry{
		data:         data,
		insertedAt:   now,
		lastAccessed: now,
		accessCount:  1,
		sizeBytes:    int64(len(data)),
		priority:     PriorityLow,
	}
	e.lruElem = c.smallLRU.PushFront(key)
	c.small[key] = e

	for len(c.small) > c.cfg.SmallTierCapacity {
		back := c.smallLRU.Back()
		if back == nil {
			break
		}
		k := back.Value.(string)
		delete(c.small, k)
		c.smallLRU.Remove(back)
		c.recordEviction()
	}
}

// --- generic map-backed tiers (medium/large/directory) ---

func (c *Cache) getFrom(mu *sync.RWMutex, m map[string]*entry, key string, stats *TierStats) ([]byte, bool) {
	mu.Lock()
	defer mu.Unlock()
	e, ok := m[key]
	if !ok {
		c.recordMiss(stats)
		return nil, false
	}
	e.lastAccessed = time.Now()
	e.accessCount++
	e.priority = priorityFor(e.accessCount)
	c.recordHit(stats)
	return e.data, true
}

func (c *Cache) putInto(mu *sync.RWMutex, m map[string]*entry, key string, data []byte, priority Priority) {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now()
	m[key] = &entry{
		data:         data,
		insertedAt:   now,
		lastAccessed: now,
		accessCount:  1,
		sizeBytes:    int64(len(data)),
		priority:     priority,
	}
}

// maybeEvict applies the spec's pressure-relief algorithm once total memory
// usage exceeds MaxMemoryUsageBytes: shrink the small tier to half capacity,
// then drop any medium/large entry that is either priority-0 or expired.
func (c *Cache) maybeEvict() {
	if c.currentMemoryUsage() <= c.cfg.MaxMemoryUsageBytes {
		return
	}

	c.smallMu.Lock()
	half := c.cfg.SmallTierCapacity / 2
	if len(c.small) > half {
		for len(c.small) > half {
			back := c.smallLRU.Back()
			if back == nil {
				break
			}
			k := back.Value.(string)
			delete(c.small, k)
			c.smallLRU.Remove(back)
			c.recordEviction()
		}
	}
	c.smallMu.Unlock()

	now := time.Now()
	evictExpired := func(mu *sync.RWMutex, m map[string]*entry, ttl time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		for k, e := range m {
			expired := now.Sub(e.insertedAt) > ttl
			if e.priority == PriorityLow || expired {
				delete(m, k)
				c.recordEviction()
			}
		}
	}
	evictExpired(&c.mediumMu, c.medium, c.cfg.MediumTTL)
	evictExpired(&c.largeMu, c.large, c.cfg.LargeTTL)
}

func (c *Cache) recordHit(t *TierStats) {
	c.statsMu.Lock()
	t.Hits++
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss(t *TierStats) {
	c.statsMu.Lock()
	t.Misses++
	c.statsMu.Unlock()
}

func (c *Cache) recordEviction() {
	c.statsMu.Lock()
	c.stats.Evictions++
	c.statsMu.Unlock()
}
