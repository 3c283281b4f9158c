package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats counts cache traffic since the cache was created.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Size        int    `json:"size"`
}

// LRUCache is a size-bounded cache whose entries also expire a fixed ttl
// after they were last written. Reads refresh recency but not the deadline.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List // front is most recently used
	now      func() time.Time
	stats    Stats
}

var (
	_ Cache[int] = (*LRUCache[int])(nil)
	_ Cleaner    = (*LRUCache[int])(nil)
)

type entry[T any] struct {
	key      string
	value    T
	deadline time.Time
}

func (e *entry[T]) expired(now time.Time) bool {
	return now.After(e.deadline)
}

// NewLRUCache creates a cache holding at most capacity entries for ttl each.
// A capacity below 1 is treated as 1.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		index:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.live(key); e != nil {
		c.stats.Hits++
		return e.value, true
	}
	c.stats.Misses++
	var zero T
	return zero, false
}

// live returns the unexpired entry for key and marks it most recently used.
// An expired entry is dropped on the way.
func (c *LRUCache[T]) live(key string) *entry[T] {
	elem, ok := c.index[key]
	if !ok {
		return nil
	}
	e := elem.Value.(*entry[T])
	if e.expired(c.now()) {
		c.drop(elem)
		c.stats.Expirations++
		return nil
	}
	c.order.MoveToFront(elem)
	return e
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.now().Add(c.ttl)
	if elem, ok := c.index[key]; ok {
		e := elem.Value.(*entry[T])
		e.value, e.deadline = value, deadline
		c.order.MoveToFront(elem)
		return
	}
	c.index[key] = c.order.PushFront(&entry[T]{key: key, value: value, deadline: deadline})
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
		c.stats.Evictions++
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.drop(elem)
	}
}

func (c *LRUCache[T]) drop(elem *list.Element) {
	delete(c.index, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}

// CleanExpired drops every expired entry and returns how many it dropped.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry[T]).expired(now) {
			c.drop(elem)
			n++
		}
		elem = prev
	}
	c.stats.Expirations += uint64(n)
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns a snapshot of the traffic counters.
func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.index)
	return s
}
