package batchload_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flowscan/batchload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWait = 10 * time.Millisecond

func TestBatcherDedup(t *testing.T) {
	r := &recorder{}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: testWait})

	values, errs := b.LoadAll([]int{3, 3, 1, 2, 1})
	assert.Equal(t, []int{9, 9, 1, 4, 1}, values)
	assert.Equal(t, []error{nil, nil, nil, nil, nil}, errs)
	assert.Equal(t, [][]int{{3, 1, 2}}, r.calls())

	stats := b.Stats()
	assert.Equal(t, uint64(5), stats.Submitted)
	assert.Equal(t, uint64(1), stats.Batches)
	assert.Equal(t, uint64(3), stats.Keys)
}

func TestBatcherOrder(t *testing.T) {
	// the batch function answers by key, not by position
	byKey := func(ctx context.Context, keys []string) ([]string, []error) {
		index := map[string]string{"c": "C", "a": "A", "b": "B"}
		return batchload.Align(keys, index)
	}
	b := batchload.NewBatcher(context.Background(), byKey, batchload.BatcherConfig{Wait: testWait})

	values, errs := b.LoadAll([]string{"b", "c", "a", "b"})
	assert.Equal(t, []string{"B", "C", "A", "B"}, values)
	assert.Equal(t, []error{nil, nil, nil, nil}, errs)
}

func TestBatcherPartialFailure(t *testing.T) {
	r := &recorder{missing: map[int]bool{999: true}}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: testWait})

	values, errs := b.LoadAll([]int{1, 2, 999})
	assert.Equal(t, 1, values[0])
	assert.Equal(t, 4, values[1])
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.True(t, batchload.IsNotFound(errs[2]))
	assert.False(t, batchload.IsBatchError(errs[2]))

	var notFound batchload.ErrNotFound[int]
	require.ErrorAs(t, errs[2], &notFound)
	assert.Equal(t, 999, notFound.Key())

	present, err := b.LoadMany([]int{999, 2, 1})
	assert.NoError(t, err)
	assert.Equal(t, []int{4, 1}, present)
}

func TestBatcherBatchFailure(t *testing.T) {
	failure := errors.New("store unavailable")
	r := &recorder{err: failure}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: time.Hour})

	thunks := []func() (int, error){b.LoadThunk(1), b.LoadThunk(2), b.LoadThunk(3)}
	b.Dispatch()
	var first error
	for _, thunk := range thunks {
		_, err := thunk()
		assert.ErrorIs(t, err, failure)
		assert.True(t, batchload.IsBatchError(err))
		assert.False(t, batchload.IsNotFound(err))
		if first == nil {
			first = err
		}
		assert.Same(t, first, err)
	}

	var batchErr *batchload.BatchError
	require.ErrorAs(t, first, &batchErr)
	assert.Equal(t, 3, batchErr.Size)

	b = batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: testWait})
	_, err := b.LoadMany([]int{1, 2})
	assert.ErrorIs(t, err, failure)
}

func TestBatcherPanic(t *testing.T) {
	b := batchload.NewBatcher(context.Background(), func(ctx context.Context, keys []int) ([]int, []error) {
		panic("boom")
	}, batchload.BatcherConfig{Wait: testWait})

	_, errs := b.LoadAll([]int{1, 2})
	for _, err := range errs {
		assert.True(t, batchload.IsBatchError(err))
		assert.Contains(t, err.Error(), "boom")
	}
}

func TestBatcherShapeMismatch(t *testing.T) {
	b := batchload.NewBatcher(context.Background(), func(ctx context.Context, keys []int) ([]int, []error) {
		return []int{1}, nil
	}, batchload.BatcherConfig{Wait: testWait})

	_, errs := b.LoadAll([]int{1, 2, 3})
	for _, err := range errs {
		assert.True(t, batchload.IsBatchError(err))
	}
}

func TestBatcherNoCrossBatchLeakage(t *testing.T) {
	r := &recorder{}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: testWait})

	first, _ := b.LoadAll([]int{1, 2})
	second, _ := b.LoadAll([]int{1, 2})
	assert.Equal(t, first, second)
	assert.Equal(t, [][]int{{1, 2}, {1, 2}}, r.calls())
}

func TestBatcherMaxBatch(t *testing.T) {
	r := &recorder{}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{MaxBatch: 2, Wait: time.Hour})

	values, errs := b.LoadAll([]int{1, 2, 3, 4})
	assert.Equal(t, []int{1, 4, 9, 16}, values)
	assert.Equal(t, []error{nil, nil, nil, nil}, errs)
	assert.ElementsMatch(t, [][]int{{1, 2}, {3, 4}}, r.calls())
}

func TestBatcherDispatch(t *testing.T) {
	r := &recorder{}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: time.Hour})

	thunk := b.LoadAllThunk([]int{5, 6})
	b.Dispatch()
	values, errs := thunk()
	assert.Equal(t, []int{25, 36}, values)
	assert.Equal(t, []error{nil, nil}, errs)

	// nothing left to dispatch
	b.Dispatch()
	assert.Len(t, r.calls(), 1)
}

func TestBatcherState(t *testing.T) {
	r := &recorder{block: make(chan struct{})}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: time.Hour})
	assert.Equal(t, batchload.Closed, b.State())

	thunk := b.LoadThunk(7)
	assert.Equal(t, batchload.Open, b.State())

	b.Dispatch()
	assert.Equal(t, batchload.Executing, b.State())

	// keys submitted now start a new batch
	next := b.LoadThunk(7)
	assert.Equal(t, batchload.Open, b.State())

	close(r.block)
	v, err := thunk()
	assert.NoError(t, err)
	assert.Equal(t, 49, v)

	b.Dispatch()
	v, err = next()
	assert.NoError(t, err)
	assert.Equal(t, 49, v)
	assert.Eventually(t, func() bool { return b.State() == batchload.Closed }, time.Second, time.Millisecond)
	assert.Equal(t, "closed", b.State().String())
	assert.Len(t, r.calls(), 2)
}

func TestBatcherAbandonedKey(t *testing.T) {
	r := &recorder{}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: testWait})

	// the thunk is never called, the key is still fetched
	_ = b.LoadThunk(4)
	assert.Eventually(t, func() bool { return len(r.calls()) == 1 }, time.Second, time.Millisecond)
}

func TestBatcherContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")
	var seen any
	b := batchload.NewBatcher(ctx, func(ctx context.Context, keys []int) ([]int, []error) {
		seen = ctx.Value(ctxKey{})
		return make([]int, len(keys)), nil
	}, batchload.BatcherConfig{Wait: testWait})

	_, err := b.Load(1)
	assert.NoError(t, err)
	assert.Equal(t, "request-1", seen)
}

func TestBatcherConcurrent(t *testing.T) {
	r := &recorder{}
	b := batchload.NewBatcher(context.Background(), r.fetch, batchload.BatcherConfig{Wait: 10 * time.Millisecond})

	n := 1000
	wg := sync.WaitGroup{}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(key int) {
			defer wg.Done()
			res, err := b.Load(key % 50)
			assert.Nil(t, err)
			assert.Equal(t, (key%50)*(key%50), res)
		}(i)
	}
	wg.Wait()

	stats := b.Stats()
	assert.Equal(t, uint64(n), stats.Submitted)
	assert.LessOrEqual(t, stats.Keys, uint64(n))
	for _, keys := range r.calls() {
		assert.Equal(t, len(keys), len(batchload.Distinct(keys, func(k int) (int, bool) { return k, true })))
	}
}

func TestHelpers(t *testing.T) {
	type row struct{ id, group int }
	rows := []row{{1, 10}, {2, 20}, {3, 10}}

	assert.Equal(t, []int{10, 20}, batchload.Distinct(rows, func(r row) (int, bool) { return r.group, true }))
	assert.Equal(t, []int{2}, batchload.Distinct(rows, func(r row) (int, bool) { return r.id, r.group == 20 }))
	assert.Equal(t, map[int]row{1: rows[0], 2: rows[1], 3: rows[2]}, batchload.IndexBy(rows, func(r row) int { return r.id }))
	assert.Equal(t, map[int][]row{10: {rows[0], rows[2]}, 20: {rows[1]}}, batchload.GroupBy(rows, func(r row) int { return r.group }))

	values, errs := batchload.Align([]int{2, 5}, map[int]string{2: "two"})
	assert.Equal(t, []string{"two", ""}, values)
	assert.NoError(t, errs[0])
	assert.True(t, batchload.IsNotFound(errs[1]))

	handler := batchload.Singlify(batchload.Batchify(func(ctx context.Context, key int) (int, error) {
		if key < 0 {
			return 0, batchload.NewErrNotFound(key)
		}
		return key + 1, nil
	}))
	v, err := handler(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
	_, err = handler(context.Background(), -1)
	assert.True(t, batchload.IsNotFound(err))
}
