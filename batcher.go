package batchload

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWait is the batch window used when BatcherConfig.Wait is not set
const DefaultWait = time.Millisecond

// BatchFunc resolves a batch of unique keys. The returned slices are index-aligned
// with keys, a nil errors slice means every key was resolved. An errors slice of
// length 1 for a batch of several keys is a batch-wide failure.
type BatchFunc[TKey comparable, TValue any] func(ctx context.Context, keys []TKey) ([]TValue, []error)

// Configuration for the batcher
type BatcherConfig struct {
	// Wait is how long to collect keys after the first one before sending a batch
	Wait time.Duration `mapstructure:"wait"`

	// MaxBatch will limit the maximum number of keys to send in one batch, 0 = no limit
	MaxBatch int `mapstructure:"maxBatch"`
}

// Batcher coalesces single key loads issued while handling one request into
// bulk calls of its batch function. Equal keys of the same batch share one
// result. A Batcher must not be shared between requests.
type Batcher[TKey comparable, TValue any] struct {
	// context of the owning request, handed to the batch function
	ctx context.Context

	// the resolver for the batched requests
	fetch BatchFunc[TKey, TValue]

	// how long to wait before sending a batch
	wait time.Duration

	// this will limit the maximum number of keys to send in one batch, 0 = no limit
	maxBatch int

	// the current open batch. keys will continue to be collected until the window
	// closes, then everything will be sent to the fetch method and out to the listeners
	batch *batch[TKey, TValue]

	// the most recent batch, open or not
	last *batch[TKey, TValue]

	stats batcherStats

	// mutex to prevent races
	mu sync.Mutex
}

// NewBatcher creates a request scoped batcher
func NewBatcher[TKey comparable, TValue any](ctx context.Context, fetch BatchFunc[TKey, TValue], config BatcherConfig) *Batcher[TKey, TValue] {
	if config.Wait <= 0 {
		config.Wait = DefaultWait
	}
	return &Batcher[TKey, TValue]{
		ctx:      ctx,
		fetch:    fetch,
		wait:     config.Wait,
		maxBatch: config.MaxBatch,
	}
}

// Load a value by key, batching will be applied automatically
func (l *Batcher[TKey, TValue]) Load(key TKey) (TValue, error) {
	return l.LoadThunk(key)()
}

// LoadThunk registers the key in the open batch and returns a function that when
// called will block waiting for the result.
// This method should be used if you want one goroutine to make requests to many
// different batchers without blocking until the thunk is called.
// The key stays in the batch even if the thunk is never called.
func (l *Batcher[TKey, TValue]) LoadThunk(key TKey) func() (TValue, error) {
	l.mu.Lock()
	if l.batch == nil {
		l.batch = newBatch[TKey, TValue]()
		l.last = l.batch
	}
	b := l.batch
	pos := b.keyIndex(l, key)
	l.mu.Unlock()
	l.stats.submitted.Add(1)

	return func() (TValue, error) {
		return b.result(pos)
	}
}

// LoadAll fetches many keys at once, results follow the order of the given keys,
// repeated keys get the same result. It will be broken into appropriate sized
// sub batches depending on how the batcher is configured
func (l *Batcher[TKey, TValue]) LoadAll(keys []TKey) ([]TValue, []error) {
	return l.LoadAllThunk(keys)()
}

// LoadAllThunk returns a function that when called will block waiting for the values.
// This method should be used if you want one goroutine to make requests to many
// different batchers without blocking until the thunk is called.
func (l *Batcher[TKey, TValue]) LoadAllThunk(keys []TKey) func() ([]TValue, []error) {
	thunks := make([]func() (TValue, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(key)
	}
	return func() ([]TValue, []error) {
		values := make([]TValue, len(keys))
		errors := make([]error, len(keys))
		for i, thunk := range thunks {
			values[i], errors[i] = thunk()
		}
		return values, errors
	}
}

// LoadMany loads the given keys and returns only the values that exist, in input order.
// Missing keys are dropped, any other failure is returned.
func (l *Batcher[TKey, TValue]) LoadMany(keys []TKey) ([]TValue, error) {
	return Present(l.LoadAll(keys))
}

// Dispatch closes the open batch and sends it without waiting for the batch window
func (l *Batcher[TKey, TValue]) Dispatch() {
	l.mu.Lock()
	b := l.batch
	if b == nil || b.state != Open {
		l.mu.Unlock()
		return
	}
	b.close(l)
	l.mu.Unlock()

	go b.resolve(l)
}

// Stats returns counters of this batcher
func (l *Batcher[TKey, TValue]) Stats() BatcherStats {
	return BatcherStats{
		Submitted: l.stats.submitted.Load(),
		Batches:   l.stats.batches.Load(),
		Keys:      l.stats.keys.Load(),
	}
}

// State returns the state of the most recent batch, Closed if there was none
func (l *Batcher[TKey, TValue]) State() BatchState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return Closed
	}
	return l.last.state
}

// execute calls the batch function and shapes its output to one value and one
// error per key
func (l *Batcher[TKey, TValue]) execute(keys []TKey) (values []TValue, errs []error) {
	defer func() {
		if r := recover(); r != nil {
			values, errs = failAll[TValue](len(keys), fmt.Errorf("batch function panic: %v", r))
		}
	}()

	values, errs = l.fetch(l.ctx, keys)

	if len(errs) == 1 && len(keys) > 1 {
		if errs[0] == nil {
			errs = nil
		} else {
			return failAll[TValue](len(keys), errs[0])
		}
	}
	if values == nil && errs != nil {
		values = make([]TValue, len(keys))
	}
	if (errs != nil && len(errs) != len(keys)) || len(values) != len(keys) {
		return failAll[TValue](len(keys), errLayerShape{keys: len(keys), values: len(values), errors: len(errs)})
	}
	if errs == nil {
		errs = make([]error, len(keys))
	}
	return values, errs
}

// failAll produces the output of a batch where every key failed with the same error
func failAll[TValue any](count int, err error) ([]TValue, []error) {
	batchErr, ok := err.(*BatchError)
	if !ok {
		batchErr = &BatchError{Size: count, Err: err}
	}
	return make([]TValue, count), fillArray(make([]error, count), error(batchErr))
}

// FailAll is the output of a batch function whose bulk fetch could not be served
func FailAll[TValue any](count int, err error) ([]TValue, []error) {
	return failAll[TValue](count, err)
}

// BatcherStats are counters describing the work done by a batcher
type BatcherStats struct {
	Submitted uint64 // number of keys passed to the batcher, repeats included
	Batches   uint64 // number of batch function calls
	Keys      uint64 // number of unique keys sent to the batch function
}

type batcherStats struct {
	submitted atomic.Uint64
	batches   atomic.Uint64
	keys      atomic.Uint64
}

func (s *batcherStats) executed(keys int) {
	s.batches.Add(1)
	s.keys.Add(uint64(keys))
}
