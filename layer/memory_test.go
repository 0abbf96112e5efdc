package layer_test

import (
	"context"
	"testing"
	"time"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/layer"
	"github.com/stretchr/testify/assert"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	memory := layer.NewMemory[int64, string](layer.MemoryConfig{})
	defer memory.Close()

	assert.Nil(t, memory.Set(ctx, []int64{1, 2}, []string{"one", "two"}))
	values, errs := memory.Get(ctx, []int64{2, 3, 1})
	assert.Equal(t, []string{"two", "", "one"}, values)
	assert.NoError(t, errs[0])
	assert.True(t, batchload.IsNotFound(errs[1]))
	assert.NoError(t, errs[2])

	assert.NoError(t, memory.Delete(ctx, []int64{1}))
	_, errs = memory.Get(ctx, []int64{1})
	assert.True(t, batchload.IsNotFound(errs[0]))
	assert.Equal(t, 1, memory.Len())
}

func TestMemoryRetention(t *testing.T) {
	ctx := context.Background()
	memory := layer.NewMemory[int64, string](layer.MemoryConfig{
		Retention:     20 * time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
	})
	defer memory.Close()

	memory.Set(ctx, []int64{1}, []string{"one"})
	_, errs := memory.Get(ctx, []int64{1})
	assert.NoError(t, errs[0])

	// expired entries are misses before and after they are swept
	assert.Eventually(t, func() bool {
		_, errs := memory.Get(ctx, []int64{1})
		return batchload.IsNotFound(errs[0])
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return memory.Len() == 0 }, time.Second, time.Millisecond)
}

func TestMemoryRefresh(t *testing.T) {
	ctx := context.Background()
	memory := layer.NewMemory[int64, string](layer.MemoryConfig{
		Retention:     100 * time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
	})
	defer memory.Close()

	memory.Set(ctx, []int64{1}, []string{"old"})
	time.Sleep(60 * time.Millisecond)
	memory.Set(ctx, []int64{1}, []string{"new"})
	time.Sleep(50 * time.Millisecond)

	// the first expiry job must not drop the refreshed value
	values, errs := memory.Get(ctx, []int64{1})
	assert.NoError(t, errs[0])
	assert.Equal(t, "new", values[0])
}
