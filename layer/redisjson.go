package layer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowscan/batchload"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisJSON layer is a redis-backed cache layer on a go-redis client, values are stored as JSON
type RedisJSON[TKey comparable, TValue any] struct {
	config RedisConfig
	client redis.UniversalClient
	logger zerolog.Logger
}

// Create a new JSON redis data layer
func NewRedisJSON[TKey comparable, TValue any](client redis.UniversalClient, config RedisConfig, logger zerolog.Logger) *RedisJSON[TKey, TValue] {
	return &RedisJSON[TKey, TValue]{
		config: config,
		client: client,
		logger: logger.With().Str("component", "RedisJSON").Str("prefix", config.KeyPrefix).Logger(),
	}
}

// Unique identifier for this layer used for logging and metric purposes
func (l *RedisJSON[TKey, TValue]) Identifier() string { return "redis-json" }

// Get loads all keys with a single MGET
func (l *RedisJSON[TKey, TValue]) Get(ctx context.Context, keys []TKey) ([]TValue, []error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cached, err := l.client.MGet(ctx, stringifyKeys(keys, l.config.KeyPrefix)...).Result()
	if err != nil {
		return batchload.FailAll[TValue](len(keys), fmt.Errorf("redis mget: %w", err))
	}

	entries := make([]batchload.CacheEntry[TValue], len(keys))
	for i, v := range cached {
		var raw []byte
		if str, ok := v.(string); ok {
			raw = []byte(str)
		}
		entries[i] = batchload.DecodeEntry(raw, func(raw []byte, value *TValue) error {
			return json.Unmarshal(raw, value)
		})
		if entries[i].Outcome == batchload.CacheInvalid {
			l.logger.Warn().Err(entries[i].Err).Interface("key", keys[i]).Msg("Invalid cached value.")
		}
	}
	l.logger.Debug().Int("keys", len(keys)).Msg("Redis lookup done.")
	return batchload.FromEntries(keys, entries)
}

// Set writes all values in one pipeline with the configured TTL
func (l *RedisJSON[TKey, TValue]) Set(ctx context.Context, keys []TKey, values []TValue) []error {
	errors := make([]error, len(keys))
	if len(keys) == 0 {
		return errors
	}

	keysString := stringifyKeys(keys, l.config.KeyPrefix)
	cmds := make([]*redis.StatusCmd, len(keys))
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, value := range values {
			payload, err := json.Marshal(value)
			if err != nil {
				errors[i] = fmt.Errorf("encode value of %v: %w", keys[i], err)
				continue
			}
			cmds[i] = pipe.Set(ctx, keysString[i], payload, l.config.Retention)
		}
		return nil
	})
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to write values to Redis.")
		return fillArray(errors, fmt.Errorf("redis set: %w", err))
	}
	for i, cmd := range cmds {
		if cmd != nil && cmd.Err() != nil {
			errors[i] = cmd.Err()
		}
	}
	return errors
}

// Delete the given keys from redis
func (l *RedisJSON[TKey, TValue]) Delete(ctx context.Context, keys []TKey) error {
	if len(keys) == 0 {
		return nil
	}
	if err := l.client.Del(ctx, stringifyKeys(keys, l.config.KeyPrefix)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
