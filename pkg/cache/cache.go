// Package cache memoizes compiled EL expressions across the factory build
// pipeline (spec.md §9 supplemented feature, enabled by factory.WithCaching).
//
// A metadata source such as pkg/metadata/directive re-parses the same EL
// source text across many fields of many types ("n * 8" recurs constantly),
// but the same text parses to different Reference trees depending on which
// struct's fields are in scope — a field named "n" means something different
// in every struct that declares one. Keying purely by source text would
// therefore hand back the wrong compiled Expression whenever two distinct
// contexts share a snippet. Cache closes that hole by keying on the pair
// (reference.Context, source text) directly, rather than leaving callers to
// invent their own delimiter-joined string and hope no context name and
// source text collide across the join point.
package cache

import (
	"container/list"
	"sync"

	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// Key identifies one compiled expression: the name of the build-time
// reference.Context it was parsed against, plus its EL source text.
type Key struct {
	Context string
	Source  string
}

// record is one cache slot in the LRU eviction list.
type record struct {
	key  Key
	expr *types.Expression
}

// Cache is a fixed-capacity, least-recently-used cache of compiled
// expressions. The zero value is not usable; build one with New. Safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	byKey    map[Key]*list.Element
}

// New builds a Cache holding at most capacity entries. capacity <= 0 is
// treated as a default of 256.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		byKey:    make(map[Key]*list.Element, capacity),
	}
}

// GetOrCompile returns the Expression cached for (ctx, source), compiling it
// with compile on a miss. A hit never calls compile; concurrent misses on
// the same key may each run compile, and the first result stored is the one
// kept. A failed compile is never cached, so a later call retries it. ctx is keyed
// by its own Name(), not by identity, so two Sessions compiling the same
// struct type share a cache entry.
func (c *Cache) GetOrCompile(ctx reference.Context, source string, compile func() (*types.Expression, error)) (*types.Expression, error) {
	key := Key{Context: ctx.Name(), Source: source}

	if expr, ok := c.lookup(key); ok {
		return expr, nil
	}

	expr, err := compile()
	if err != nil {
		return nil, err
	}
	return c.store(key, expr), nil
}

func (c *Cache) lookup(key Key) (*types.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*record).expr, true
}

// store records expr under key, promoting an existing entry instead of
// duplicating it (two goroutines can race to compile the same miss; the
// first to arrive here wins and the second's result is discarded).
func (c *Cache) store(key Key, expr *types.Expression) *types.Expression {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byKey[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*record).expr
	}
	if c.order.Len() >= c.capacity {
		c.evictOldestLocked()
	}
	el := c.order.PushFront(&record{key: key, expr: expr})
	c.byKey[key] = el
	return expr
}

// evictOldestLocked drops the least recently used entry. c.mu must be held.
func (c *Cache) evictOldestLocked() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.byKey, el.Value.(*record).key)
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.byKey = make(map[Key]*list.Element, c.capacity)
}
