package layer

import (
	"context"
	"sync"
	"time"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/collection/queue"
	"github.com/flowscan/batchload/collection/tuple"
)

// Configuration for the memory data layer
type MemoryConfig struct {
	// The duration of the cached data, 0 keeps data until it is deleted
	Retention time.Duration

	// How often expired data is swept, defaults to 500ms
	SweepInterval time.Duration
}

type memoryEntry[TValue any] struct {
	value     TValue
	expiresAt time.Time
}

// Memory layer is map-based in-memory cache, it should be used as the first line of cache
// with short data expiration
type Memory[TKey comparable, TValue any] struct {
	config            MemoryConfig
	data              map[TKey]memoryEntry[TValue]
	mu                sync.RWMutex
	invalidationQueue *queue.Queue[tuple.Pair[time.Time, TKey]]
	stop              chan struct{}
	stopOnce          sync.Once
}

// Create a new in-memory data layer
func NewMemory[TKey comparable, TValue any](config MemoryConfig) *Memory[TKey, TValue] {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 500 * time.Millisecond
	}
	l := &Memory[TKey, TValue]{
		config:            config,
		data:              make(map[TKey]memoryEntry[TValue]),
		invalidationQueue: queue.NewQueue[tuple.Pair[time.Time, TKey]](1),
		stop:              make(chan struct{}),
	}
	if config.Retention > 0 {
		go l.startInvalidator()
	}
	return l
}

// Unique identifier for this layer used for logging and metric purposes
func (l *Memory[TKey, TValue]) Identifier() string { return "memory" }

// The function that will be used to resolve a set of keys
func (l *Memory[TKey, TValue]) Get(ctx context.Context, keys []TKey) ([]TValue, []error) {
	result := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	now := time.Now()
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, k := range keys {
		if e, ok := l.data[k]; ok && !e.expired(now) {
			result[i] = e.value
		} else {
			errors[i] = batchload.NewErrNotFound(k)
		}
	}
	return result, errors
}

// The function that will be called for successful resolvers
func (l *Memory[TKey, TValue]) Set(ctx context.Context, keys []TKey, values []TValue) []error {
	var expiresAt time.Time
	if l.config.Retention > 0 {
		expiresAt = time.Now().Add(l.config.Retention)
	}
	l.mu.Lock()
	for i, k := range keys {
		l.data[k] = memoryEntry[TValue]{value: values[i], expiresAt: expiresAt}
		if l.config.Retention > 0 {
			l.invalidationQueue.Enqueue(tuple.NewPair(expiresAt, k))
		}
	}
	l.mu.Unlock()
	return nil
}

// Delete the given keys from the cache
func (l *Memory[TKey, TValue]) Delete(ctx context.Context, keys []TKey) error {
	l.mu.Lock()
	for _, k := range keys {
		delete(l.data, k)
	}
	l.mu.Unlock()
	return nil
}

// Len is the number of entries held, expired entries not swept yet included
func (l *Memory[TKey, TValue]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.data)
}

// Close stops the background invalidator
func (l *Memory[TKey, TValue]) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	return nil
}

// deletes expired records on the cache
func (l *Memory[TKey, TValue]) startInvalidator() {
	ticker := time.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

func (l *Memory[TKey, TValue]) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		next, ok := l.invalidationQueue.Peek()
		if !ok || now.Before(next.V1) {
			return
		}
		l.invalidationQueue.Dequeue()

		// the key might have been set again after this job was queued
		_, key := next.Unpack()
		if e, ok := l.data[key]; ok && e.expired(now) {
			delete(l.data, key)
		}
	}
}

func (e memoryEntry[TValue]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
