// Package searchcache memoizes place-search results in front of a provider.
package searchcache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"golang.org/x/text/cases"
)

// CachedSearcher wraps a PlaceSearcher with an in-memory LRU cache.
type CachedSearcher struct {
	inner   domain.PlaceSearcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedSearcher creates a cache decorator around a place searcher.
func NewCachedSearcher(inner domain.PlaceSearcher, maxEntries int, metrics *observability.Metrics) *CachedSearcher {
	return &CachedSearcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Provider reports the wrapped provider's id.
func (c *CachedSearcher) Provider() string { return c.inner.Provider() }

// Search returns cached results for an equivalent query, otherwise delegates.
func (c *CachedSearcher) Search(ctx context.Context, q domain.SearchQuery) ([]domain.CandidateVenue, error) {
	key := cacheKey(c.inner.Provider(), q)
	if result, ok := c.cache.get(key); ok {
		c.metrics.SearchCache.WithLabelValues(c.inner.Provider(), "hit").Inc()
		return cloneCandidates(result), nil
	}
	c.metrics.SearchCache.WithLabelValues(c.inner.Provider(), "miss").Inc()

	result, err := c.inner.Search(ctx, q)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if len(result) > 0 {
		c.cache.put(key, cloneCandidates(result))
	}
	return result, nil
}

// cacheKey treats queries that differ only in case and whitespace within
// roughly 100 m of each other as equivalent. Every other rune of the text is
// kept, so scripts the name normalizer drops still get distinct keys.
func cacheKey(provider string, q domain.SearchQuery) string {
	text := cases.Fold().String(strings.Join(strings.Fields(q.Text), " "))
	return fmt.Sprintf("%s|%s|%.3f,%.3f|%d", provider, text, q.Lat, q.Lng, q.Limit)
}

func cloneCandidates(in []domain.CandidateVenue) []domain.CandidateVenue {
	out := make([]domain.CandidateVenue, len(in))
	copy(out, in)
	return out
}

// lruCache is a simple thread-safe LRU cache for provider result batches.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.CandidateVenue
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.CandidateVenue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.CandidateVenue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
