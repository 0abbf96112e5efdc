package layer

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/flowscan/batchload"
	"github.com/mediocregopher/radix/v3"
	"github.com/rs/zerolog/log"
)

// payload stored for nil pointers, gob does not support them
const nilPayload = "nil"

// Configuration for the redis data layers
type RedisConfig struct {
	// The duration of the cached data, set 0 to disable expiration
	Retention time.Duration

	// Key prefix to be used in redis keys
	KeyPrefix string
}

// RedisGob layer is redis-backed cache layer with gob encoding and configurable expiration time
type RedisGob[TKey comparable, TValue any] struct {
	config RedisConfig
	client radix.Client
}

// Create a new redis data layer on top of a radix client, usually a *radix.Pool
func NewRedisGob[TKey comparable, TValue any](client radix.Client, config RedisConfig) *RedisGob[TKey, TValue] {
	return &RedisGob[TKey, TValue]{
		config: config,
		client: client,
	}
}

// Unique identifier for this layer used for logging and metric purposes
func (l *RedisGob[TKey, TValue]) Identifier() string { return "redis" }

// The function that will be used to resolve a set of keys
func (l *RedisGob[TKey, TValue]) Get(ctx context.Context, keys []TKey) ([]TValue, []error) {
	keysCount := len(keys)
	if keysCount == 0 {
		return nil, nil
	}

	cacheBuffer := make([][]byte, keysCount)
	if err := l.client.Do(radix.Cmd(&cacheBuffer, "MGET", stringifyKeys(keys, l.config.KeyPrefix)...)); err != nil {
		return batchload.FailAll[TValue](keysCount, fmt.Errorf("redis mget: %w", err))
	}

	entries := make([]batchload.CacheEntry[TValue], keysCount)
	for i, raw := range cacheBuffer {
		entries[i] = batchload.DecodeEntry(raw, decodeGob[TValue])
		if entries[i].Outcome == batchload.CacheInvalid {
			log.Warn().Err(entries[i].Err).Interface("key", keys[i]).Msg("invalid cached value in redis")
		}
	}
	return batchload.FromEntries(keys, entries)
}

// The function that will be called for successful resolvers
func (l *RedisGob[TKey, TValue]) Set(ctx context.Context, keys []TKey, values []TValue) []error {
	count := len(keys)
	errors := make([]error, count)
	if count == 0 {
		return errors
	}

	// prepare batch SET commands using MSET
	cacheArguments := make([]string, 0, 2*count)
	keysString := stringifyKeys(keys, l.config.KeyPrefix)
	storedKeys := make([]string, 0, count)
	for i, value := range values {
		payload, err := encodeGob(value)
		if err != nil {
			log.Err(err).Str("key", keysString[i]).Msg("failed to encode value for redis")
			errors[i] = err
			continue
		}
		cacheArguments = append(cacheArguments, keysString[i], payload)
		storedKeys = append(storedKeys, keysString[i])
	}
	if len(storedKeys) == 0 {
		return errors
	}

	commands := []radix.CmdAction{radix.Cmd(nil, "MSET", cacheArguments...)}

	// prepare EXPIRE commands
	if l.config.Retention > 0 {
		seconds := strconv.FormatInt(int64(l.config.Retention.Seconds()), 10)
		for _, key := range storedKeys {
			commands = append(commands, radix.Cmd(nil, "EXPIRE", key, seconds))
		}
	}

	if err := l.client.Do(radix.Pipeline(commands...)); err != nil {
		log.Err(err).Msg("failed to write values to redis")
		return fillArray(errors, fmt.Errorf("redis mset: %w", err))
	}
	return errors
}

// Delete the given keys from redis
func (l *RedisGob[TKey, TValue]) Delete(ctx context.Context, keys []TKey) error {
	if len(keys) == 0 {
		return nil
	}
	if err := l.client.Do(radix.Cmd(nil, "DEL", stringifyKeys(keys, l.config.KeyPrefix)...)); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func encodeGob(value any) (string, error) {
	// gob does not support nil pointers
	if v := reflect.ValueOf(value); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return nilPayload, nil
	}
	b := bytes.Buffer{}
	if err := gob.NewEncoder(&b).Encode(value); err != nil {
		return "", err
	}
	return b.String(), nil
}

func decodeGob[TValue any](raw []byte, value *TValue) error {
	// stored from a nil pointer, value stays the zero value
	if string(raw) == nilPayload {
		return nil
	}
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(value)
}

func stringifyKeys[TKey comparable](keys []TKey, prefix string) []string {
	return mapFn(keys, func(input TKey) string {
		return fmt.Sprintf("%s%v", prefix, input)
	})
}

func mapFn[T1 any, T2 any](arr []T1, fn func(input T1) T2) []T2 {
	newArr := make([]T2, len(arr))
	for i, v := range arr {
		newArr[i] = fn(v)
	}
	return newArr
}

func fillArray[T any](arr []T, value T) []T {
	for i := range arr {
		arr[i] = value
	}
	return arr
}
