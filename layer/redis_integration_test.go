//go:build integration

package layer_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/layer"
	"github.com/mediocregopher/radix/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (p profile) Validate() error {
	if p.ID == 0 {
		return assert.AnError
	}
	return nil
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisGob_Integration(t *testing.T) {
	ctx := context.Background()
	pool, err := radix.NewPool("tcp", redisAddr(), 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	prefix := "test:gob:" + time.Now().Format("150405.000") + ":"
	cache := layer.NewRedisGob[int64, profile](pool, layer.RedisConfig{KeyPrefix: prefix, Retention: time.Minute})

	t.Run("Set and Get", func(t *testing.T) {
		errs := cache.Set(ctx, []int64{1, 2}, []profile{{ID: 1, Name: "ada"}, {ID: 2, Name: "bob"}})
		assert.Equal(t, []error{nil, nil}, errs)

		values, errs := cache.Get(ctx, []int64{2, 3, 1})
		assert.Equal(t, profile{ID: 2, Name: "bob"}, values[0])
		assert.NoError(t, errs[0])
		assert.True(t, batchload.IsNotFound(errs[1]))
		assert.Equal(t, profile{ID: 1, Name: "ada"}, values[2])
	})

	t.Run("Invalid payload is a miss", func(t *testing.T) {
		require.NoError(t, pool.Do(radix.Cmd(nil, "SET", prefix+"9", "not gob")))
		_, errs := cache.Get(ctx, []int64{9})
		var invalid *batchload.InvalidCacheError
		assert.ErrorAs(t, errs[0], &invalid)
		assert.True(t, batchload.IsNotFound(errs[0]))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, []int64{1}))
		_, errs := cache.Get(ctx, []int64{1})
		assert.True(t, batchload.IsNotFound(errs[0]))
	})
}

func TestRedisJSON_Integration(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: redisAddr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	prefix := "test:json:" + time.Now().Format("150405.000") + ":"
	cache := layer.NewRedisJSON[int64, profile](client, layer.RedisConfig{KeyPrefix: prefix, Retention: time.Minute}, zerolog.Nop())

	t.Run("Set and Get", func(t *testing.T) {
		errs := cache.Set(ctx, []int64{1}, []profile{{ID: 1, Name: "ada"}})
		assert.Equal(t, []error{nil}, errs)

		values, errs := cache.Get(ctx, []int64{1, 2})
		assert.Equal(t, profile{ID: 1, Name: "ada"}, values[0])
		assert.NoError(t, errs[0])
		assert.True(t, batchload.IsNotFound(errs[1]))
	})

	t.Run("Wrong shape is a miss", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, prefix+"7", `{"name":"no id"}`, time.Minute).Err())
		require.NoError(t, client.Set(ctx, prefix+"8", `[1,2]`, time.Minute).Err())
		_, errs := cache.Get(ctx, []int64{7, 8})
		for _, err := range errs {
			var invalid *batchload.InvalidCacheError
			assert.ErrorAs(t, err, &invalid)
		}
	})

	t.Run("TTL", func(t *testing.T) {
		ttl, err := client.TTL(ctx, prefix+"1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})
}
