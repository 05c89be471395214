// Package idempotency implements the duplicate-suppression cache for inbound
// requests that carry a client-supplied request key. The first resolution of
// a key stores the exact response bytes and status code; duplicates within the
// TTL window replay them verbatim without touching the assistant again.
//
// The cache is bounded two ways: entries expire after a fixed TTL, and the
// entry count is capped with least-recently-used eviction. Expired entries
// are swept lazily on access and insert; there is no background goroutine.
package idempotency

import (
	"container/list"
	"sync"
	"time"
)

// Entry is one cached response. ContentType and ContentEncoding record how
// the payload bytes were produced, so a replay through a compressing route
// serves them with the headers the first response carried.
type Entry struct {
	Key             string
	StatusCode      int
	ContentType     string
	ContentEncoding string
	Payload         []byte
	CreatedAt       time.Time
}

// Cache is a TTL+LRU response cache. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	ll       *list.List // front = most recently used
	idx      map[string]*list.Element

	// now is a clock seam for tests.
	now func() time.Time
}

// NewCache returns a cache holding at most capacity entries for at most ttl.
func NewCache(ttl time.Duration, capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		ll:       list.New(),
		idx:      make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// Lookup returns the cached response for key, refreshing its recency.
// Expired entries are removed and reported as misses.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()

	el, ok := c.idx[key]
	if !ok {
		return Entry{}, false
	}
	entry := el.Value.(Entry)
	if c.expired(entry) {
		c.remove(el)
		return Entry{}, false
	}
	c.ll.MoveToFront(el)
	return entry, true
}

// Store records e under key, replacing any previous entry. Key and CreatedAt
// are set by the cache; the payload is copied, so callers may reuse their
// buffer.
func (c *Cache) Store(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Key = key
	e.Payload = append([]byte(nil), e.Payload...)
	e.CreatedAt = c.now()
	if el, ok := c.idx[key]; ok {
		el.Value = e
		c.ll.MoveToFront(el)
		return
	}
	c.idx[key] = c.ll.PushFront(e)

	c.sweep()
	for c.ll.Len() > c.capacity {
		c.remove(c.ll.Back())
	}
}

// Len reports the current entry count, expired entries included until swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// sweep drops expired entries from the cold end. Stops at the first live
// entry; recency order means everything in front of it is younger or hotter.
func (c *Cache) sweep() {
	for {
		back := c.ll.Back()
		if back == nil || !c.expired(back.Value.(Entry)) {
			return
		}
		c.remove(back)
	}
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl
}

func (c *Cache) remove(el *list.Element) {
	delete(c.idx, el.Value.(Entry).Key)
	c.ll.Remove(el)
}
