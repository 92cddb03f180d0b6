package idempotency

import (
	"container/list"
	"sync"
	"time"
)

// Defaults used when NewCache gets non-positive values.
const (
	DefaultTTL        = 10 * time.Minute
	DefaultMaxEntries = 10000
)

// Cache stores replayable responses for a limited time, evicting the least
// recently used entry when full.
type Cache[V any] struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type cacheEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// NewCache creates a cache with the given ttl and max entries.
func NewCache[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache[V]{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key joins the parts of a replay key. Any empty part yields "" which disables caching.
func Key(parts ...string) string {
	size := 0
	for _, p := range parts {
		if p == "" {
			return ""
		}
		size += len(p) + 1
	}
	buf := make([]byte, 0, size)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, p...)
	}
	return string(buf)
}

// Get retrieves a cached value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil || key == "" {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*cacheEntry[V])
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.items, key)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

// Set stores a value, refreshing its expiry.
func (c *Cache[V]) Set(key string, value V) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry[V])
		entry.value = value
		entry.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry[V]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
	c.items[key] = elem
	c.trim()
}

// Len returns the number of retained entries, including expired ones not yet collected.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) trim() {
	for len(c.items) > c.maxEntries {
		elem := c.order.Back()
		if elem == nil {
			return
		}
		entry := elem.Value.(*cacheEntry[V])
		delete(c.items, entry.key)
		c.order.Remove(elem)
	}
}
