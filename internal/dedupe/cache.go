// ABOUTME: TTL and size bounded set of recently seen event ids
// ABOUTME: The dispatcher consults it so at-least-once gateway delivery runs handlers once

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// DefaultTTL and DefaultSize apply when New receives non-positive values.
const (
	DefaultTTL  = 5 * time.Minute
	DefaultSize = 10000
)

type entry struct {
	seenAt time.Time
	elem   *list.Element
}

// Cache remembers event ids for a TTL, evicting the oldest when full.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	// oldest at front
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache and starts a sweeper that drops expired ids once per
// sweep interval. The interval is the TTL capped to one minute.
func New(ttl time.Duration, maxSize int, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	c := &Cache{
		entries: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweepLoop(min(ttl, time.Minute))
	return c
}

// Seen reports whether id was recorded within the TTL, and records it if not.
// The check and the record happen under one lock.
func (c *Cache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[id]; ok {
		if now.Sub(e.seenAt) < c.ttl {
			return true
		}
		e.seenAt = now
		c.order.MoveToBack(e.elem)
		return false
	}

	if len(c.entries) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			delete(c.entries, front.Value.(string))
			c.order.Remove(front)
		}
	}
	c.entries[id] = &entry{seenAt: now, elem: c.order.PushBack(id)}
	return false
}

// Contains reports whether id is recorded and unexpired without recording it.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return ok && c.now().Sub(e.seenAt) < c.ttl
}

// Len returns the number of ids held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep walks from the oldest entry and stops at the first live one.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		id := front.Value.(string)
		if now.Sub(c.entries[id].seenAt) < c.ttl {
			return
		}
		delete(c.entries, id)
		c.order.Remove(front)
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
