package extension

import (
	"sync"
	"time"

	"github.com/flowscan/batchload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type traceKey struct {
	layer int
	trace uint64
}

// Logger is an extension for batchload that logs access and value sets for debugging
type Logger[TKey comparable, TValue any] struct {
	// Logger to write to, the global zerolog logger if nil
	Logger *zerolog.Logger

	store      string
	loadStarts map[traceKey]time.Time
	setStarts  map[traceKey]time.Time
	mu         sync.Mutex
}

func (e *Logger[TKey, TValue]) Name() string { return "Logger" }

func (e *Logger[TKey, TValue]) logger() *zerolog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return &log.Logger
}

func (e *Logger[TKey, TValue]) InitializationHook(r *batchload.Repository[TKey, TValue], layers []batchload.Layer[TKey, TValue]) error {
	e.store = r.Identifier()
	e.loadStarts = make(map[traceKey]time.Time)
	e.setStarts = make(map[traceKey]time.Time)
	e.logger().Debug().Str("store", e.store).Int("layers", len(layers)).Msg("repository initialized")
	return nil
}

func (e *Logger[TKey, TValue]) PreLoadHook(traceID uint64, keys []TKey) {
	e.logger().Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("loading start: %v", keys)
}

func (e *Logger[TKey, TValue]) PostLoadHook(traceID uint64, keys []TKey, values []TValue, errors []error) {
	e.logger().Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("loading finish: %v (errors: %v)", values, errors)
}

func (e *Logger[TKey, TValue]) LayerPreLoadHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey) {
	e.mu.Lock()
	e.loadStarts[traceKey{layerIndex, traceID}] = time.Now()
	e.mu.Unlock()
	e.logger().Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("loading start at layer %v: %v", layer.Identifier(), keys)
}

func (e *Logger[TKey, TValue]) LayerPostLoadHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey, values []TValue, errors []error) {
	e.mu.Lock()
	started := e.loadStarts[traceKey{layerIndex, traceID}]
	delete(e.loadStarts, traceKey{layerIndex, traceID})
	e.mu.Unlock()
	e.logger().Debug().Str("store", e.store).Uint64("trace", traceID).Msgf(
		"loading finish from layer %v: %v (errors: %v) time: %v",
		layer.Identifier(),
		values,
		errors,
		time.Since(started).Milliseconds(),
	)
}

func (e *Logger[TKey, TValue]) LayerPreSetHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey, values []TValue) {
	e.mu.Lock()
	e.setStarts[traceKey{layerIndex, traceID}] = time.Now()
	e.mu.Unlock()
	e.logger().Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("setting start at layer %v: keys: %v values: %v", layer.Identifier(), keys, values)
}

func (e *Logger[TKey, TValue]) LayerPostSetHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey, values []TValue, errors []error) {
	e.mu.Lock()
	started := e.setStarts[traceKey{layerIndex, traceID}]
	delete(e.setStarts, traceKey{layerIndex, traceID})
	e.mu.Unlock()
	e.logger().Debug().Str("store", e.store).Uint64("trace", traceID).Msgf(
		"setting finish at layer %v: keys: %v values: %v errors: %v time: %v",
		layer.Identifier(),
		keys,
		values,
		errors,
		time.Since(started).Milliseconds(),
	)
}
