// Package tlru is a time-aware least recently used cache usable as a data layer
package tlru

import (
	"context"
	"sync"
	"time"

	"github.com/flowscan/batchload"
)

type entry[TKey comparable, TValue any] struct {
	key       TKey
	value     TValue
	size      int64
	expiresAt time.Time
}

// an implementation of Time-Aware Least Recent Used in-memory cache
type Cache[TKey comparable, TValue any] struct {
	data    map[TKey]*Item[*entry[TKey, TValue]]
	lru     *PriorityQueue[*entry[TKey, TValue]]
	config  Config
	counter int64
	bytes   int64
	now     func() time.Time
	mu      sync.Mutex
}

// create a new TLRU cache
func NewCache[TKey comparable, TValue any](config Config) (*Cache[TKey, TValue], error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	c := &Cache[TKey, TValue]{
		data:   make(map[TKey]*Item[*entry[TKey, TValue]]),
		lru:    NewQueue[*entry[TKey, TValue]](),
		config: config,
		now:    time.Now,
	}

	return c, nil
}

// Unique identifier for this layer used for logging and metric purposes
func (c *Cache[TKey, TValue]) Identifier() string { return "tlru" }

// get values from the given keys, expired values are dropped and reported as missing
func (c *Cache[TKey, TValue]) Get(ctx context.Context, keys []TKey) ([]TValue, []error) {
	result := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range keys {
		item, ok := c.data[k]
		if ok && item.Value.expired(now) {
			c.remove(item)
			ok = false
		}
		if !ok {
			errors[i] = batchload.NewErrNotFound(k)
			continue
		}
		result[i] = item.Value.value
		c.lru.Update(item, c.tick())
	}
	return result, errors
}

// set values for the given keys, evicting the least recently used values over the limits
func (c *Cache[TKey, TValue]) Set(ctx context.Context, keys []TKey, values []TValue) []error {
	var expiresAt time.Time
	if c.config.DefaultTTL > 0 {
		expiresAt = c.now().Add(c.config.DefaultTTL)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range keys {
		if item, ok := c.data[k]; ok {
			c.remove(item)
		}
		e := &entry[TKey, TValue]{key: k, value: values[i], expiresAt: expiresAt}
		if c.config.SizeOf != nil {
			e.size = c.config.SizeOf(values[i])
		}
		item := NewItem(e, c.tick())
		c.lru.Push(item)
		c.data[k] = item
		c.bytes += e.size
	}
	c.evict()
	return nil
}

// Delete the given keys
func (c *Cache[TKey, TValue]) Delete(ctx context.Context, keys []TKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if item, ok := c.data[k]; ok {
			c.remove(item)
		}
	}
	return nil
}

// Len is the number of items in the cache
func (c *Cache[TKey, TValue]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Cache[TKey, TValue]) evict() {
	for c.overLimit() {
		item := c.lru.Peek()
		if item == nil {
			return
		}
		c.remove(item)
	}
}

func (c *Cache[TKey, TValue]) overLimit() bool {
	if c.config.MaxItems > 0 && len(c.data) > c.config.MaxItems {
		return true
	}
	return c.config.SizeOf != nil && c.config.MaxBytes > 0 && c.bytes > c.config.MaxBytes
}

func (c *Cache[TKey, TValue]) remove(item *Item[*entry[TKey, TValue]]) {
	c.lru.Remove(item)
	delete(c.data, item.Value.key)
	c.bytes -= item.Value.size
}

func (c *Cache[TKey, TValue]) tick() int64 {
	c.counter++
	return c.counter
}

func (e *entry[TKey, TValue]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
