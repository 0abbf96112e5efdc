package batchload_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/layer"
)

// create a simple int -> int repository with 2 layers, a in-memory cache and a backend that squares integers with a delay
func newSquareMockRepository(t *testing.T, delay time.Duration) *batchload.Repository[int, int] {
	repository, err := batchload.New(batchload.Config[int, int]{
		Identifier: "square",
		Layers: []batchload.Layer[int, int]{
			layer.NewMemory[int, int](layer.MemoryConfig{Retention: 10 * time.Hour}),
			SquareMockBackend{fakeDelay: delay},
		},
	})
	if err != nil {
		t.Fatalf("failed to create mock square repository")
	}
	return repository
}

type SquareMockBackend struct {
	fakeDelay time.Duration
}

func (s SquareMockBackend) Identifier() string { return "SquareMockBackend" }

func (s SquareMockBackend) Get(ctx context.Context, keys []int) ([]int, []error) {
	time.Sleep(s.fakeDelay)
	result := make([]int, len(keys))
	for i, v := range keys {
		result[i] = v * v
	}
	return result, nil
}

func (s SquareMockBackend) Set(ctx context.Context, keys []int, values []int) []error {
	return nil
}

// NotPrimeOnlyBackend resolves every key to itself except primes which are not found
type NotPrimeOnlyBackend struct {
	fakeDelay time.Duration
}

func (s NotPrimeOnlyBackend) Identifier() string { return "NotPrimeOnlyBackend" }

func (s NotPrimeOnlyBackend) Get(ctx context.Context, keys []int) ([]int, []error) {
	time.Sleep(s.fakeDelay)
	result := make([]int, len(keys))
	errors := make([]error, len(keys))
	for i, v := range keys {
		if isPrime(v) {
			errors[i] = batchload.NewErrNotFound(v)
		} else {
			result[i] = v
		}
	}
	return result, errors
}

func (s NotPrimeOnlyBackend) Set(ctx context.Context, keys []int, values []int) []error {
	return nil
}

// SettableBackend multiplies keys and stores the values it is given
type SettableBackend struct {
	multiplier atomic.Int32
	mu         sync.Mutex
	stored     map[int]int
}

func (s *SettableBackend) Identifier() string { return "SettableBackend" }

func (s *SettableBackend) Get(ctx context.Context, keys []int) ([]int, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]int, len(keys))
	for i, k := range keys {
		if v, ok := s.stored[k]; ok {
			result[i] = v
		} else {
			result[i] = k * int(s.multiplier.Load())
		}
	}
	return result, nil
}

func (s *SettableBackend) Set(ctx context.Context, keys []int, values []int) []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		s.stored = make(map[int]int)
	}
	for i, k := range keys {
		s.stored[k] = values[i]
	}
	return nil
}

type account struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (a account) Validate() error {
	if a.ID == 0 {
		return errors.New("account without id")
	}
	return nil
}

// JSONCacheBackend serves raw JSON payloads the way a remote cache would
type JSONCacheBackend struct {
	payloads map[int]string
}

func (s JSONCacheBackend) Identifier() string { return "JSONCacheBackend" }

func (s JSONCacheBackend) Get(ctx context.Context, keys []int) ([]*account, []error) {
	entries := make([]batchload.CacheEntry[*account], len(keys))
	for i, k := range keys {
		var raw []byte
		if payload, ok := s.payloads[k]; ok {
			raw = []byte(payload)
		}
		entries[i] = batchload.DecodeEntry(raw, func(raw []byte, value **account) error {
			return json.Unmarshal(raw, value)
		})
	}
	return batchload.FromEntries(keys, entries)
}

func (s JSONCacheBackend) Set(ctx context.Context, keys []int, values []*account) []error {
	return nil
}

// FailingBackend fails every lookup as a whole
type FailingBackend struct {
	err error
}

func (s FailingBackend) Identifier() string { return "FailingBackend" }

func (s FailingBackend) Get(ctx context.Context, keys []int) ([]int, []error) {
	return nil, []error{s.err}
}

func (s FailingBackend) Set(ctx context.Context, keys []int, values []int) []error {
	errors := make([]error, len(keys))
	for i := range errors {
		errors[i] = s.err
	}
	return errors
}

// recorder is a batch function squaring keys that records every batch it receives
type recorder struct {
	mu      sync.Mutex
	batches [][]int
	missing map[int]bool
	err     error
	block   chan struct{}
}

func (r *recorder) fetch(ctx context.Context, keys []int) ([]int, []error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.batches = append(r.batches, append([]int(nil), keys...))
	r.mu.Unlock()

	if r.err != nil {
		return nil, []error{r.err}
	}
	values := make([]int, len(keys))
	errors := make([]error, len(keys))
	for i, k := range keys {
		if r.missing[k] {
			errors[i] = batchload.NewErrNotFound(k)
			continue
		}
		values[i] = k * k
	}
	return values, errors
}

func (r *recorder) calls() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]int(nil), r.batches...)
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

func randDuration(from time.Duration, to time.Duration) time.Duration {
	delta := to - from
	return from + time.Duration(rand.Float64()*float64(delta))
}
