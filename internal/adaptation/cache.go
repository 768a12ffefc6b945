package adaptation

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"wayfarer/internal/domain"
)

// DefaultCacheCapacity bounds the adaptation cache.
const DefaultCacheCapacity = 100

// CacheKey joins the content id, the context hash and a non-empty
// preference key with underscores.
func CacheKey(contentID, contextHash, prefsKey string) string {
	key := contentID + "_" + contextHash
	if prefsKey != "" {
		key += "_" + prefsKey
	}
	return key
}

// cacheEntry is a cached adaptation. story is set when the adaptation is
// also memoised on the story, so eviction can drop the memo with it.
type cacheEntry struct {
	adapted domain.AdaptedContent
	story   *domain.StoryContent
}

// fifoCache evicts in insertion order. Reads go through Peek and existing
// keys are never re-added, so the lru recency list is the insertion order.
// Story memos live exactly as long as their cache entry.
type fifoCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, cacheEntry]
	onEvict func(key string)
}

func newFIFOCache(capacity int, onEvict func(key string)) (*fifoCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c := &fifoCache{onEvict: onEvict}
	entries, err := lru.NewWithEvict[string, cacheEntry](capacity, c.evicted)
	if err != nil {
		return nil, fmt.Errorf("adaptation cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

func (c *fifoCache) evicted(key string, entry cacheEntry) {
	if entry.story != nil {
		entry.story.Forget(entry.adapted.ContextHash)
	}
	if c.onEvict != nil {
		c.onEvict(key)
	}
}

func (c *fifoCache) get(key string) (domain.AdaptedContent, bool) {
	entry, ok := c.entries.Peek(key)
	return entry.adapted, ok
}

// put stores value unless key is already present and reports whether it
// was stored. A non-nil memo also remembers value on that story.
func (c *fifoCache) put(key string, value domain.AdaptedContent, memo *domain.StoryContent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries.Contains(key) {
		return false
	}
	c.entries.Add(key, cacheEntry{adapted: value, story: memo})
	if memo != nil {
		memo.Remember(value)
	}
	return true
}

// keys returns the cached keys, oldest first.
func (c *fifoCache) keys() []string {
	return c.entries.Keys()
}

func (c *fifoCache) len() int {
	return c.entries.Len()
}

func (c *fifoCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
