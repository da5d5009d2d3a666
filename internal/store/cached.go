package store

import (
	"context"
	"sync"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

// Cached wraps a Store with an in-memory LRU of latest observations. Writes
// go to the inner store first and are cached only on success; a read miss
// falls through to the inner store and populates the cache.
type Cached struct {
	inner Store
	cache *lruCache
}

// NewCached creates a cache decorator around a store.
func NewCached(inner Store, maxEntries int) *Cached {
	return &Cached{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *Cached) Put(ctx context.Context, obs domain.Observation) error {
	if err := c.inner.Put(ctx, obs); err != nil {
		return err
	}
	c.cache.put(obs.Station, obs)
	return nil
}

func (c *Cached) PutAll(ctx context.Context, obs []domain.Observation) error {
	return putEach(ctx, obs, c.Put)
}

func (c *Cached) GetLatest(ctx context.Context, station string) (domain.Observation, bool, error) {
	if obs, ok := c.cache.get(station); ok {
		return obs, true, nil
	}
	obs, ok, err := c.inner.GetLatest(ctx, station)
	if err != nil || !ok {
		return obs, ok, err
	}
	// A concurrent Put may have cached a newer value since the inner read.
	c.cache.add(station, obs)
	return obs, true, nil
}

func (c *Cached) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	return c.inner.ListLatest(ctx)
}

func (c *Cached) Close() error {
	return c.inner.Close()
}

// lruCache is a thread-safe LRU of observations keyed by station.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Observation
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

func (c *lruCache) get(key string) (domain.Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Observation{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// add inserts value only when key is not cached yet.
func (c *lruCache) add(key string, value domain.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	c.insert(key, value)
}

func (c *lruCache) put(key string, value domain.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	c.insert(key, value)
}

func (c *lruCache) insert(key string, value domain.Observation) {
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
