package batchload

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrNoLayers is returned when a repository is configured without any layer
var ErrNoLayers = errors.New("repository needs at least one layer")

// Repository resolves keys through a chain of layers, typically caches in front
// of a source of truth. It is safe to share between requests, the batchers it
// creates are not.
type Repository[TKey comparable, TValue any] struct {
	// identifier for logging and metrics
	identifier string

	// data resolver layers in this repository
	layers []Layer[TKey, TValue]

	// configuration of the batchers created by Loader
	batcherConfig BatcherConfig

	// default load flags
	defaultLoadFlags LoadFlag

	// trace counter for trace ID assignment
	traceCounter atomic.Uint64

	// hooks
	initializationHooks []InitializationHookExtension[TKey, TValue]
	preLoadHooks        []PreLoadHookExtension[TKey, TValue]
	postLoadHooks       []PostLoadHookExtension[TKey, TValue]
	layerPreLoadHooks   []LayerPreLoadHookExtension[TKey, TValue]
	layerPostLoadHooks  []LayerPostLoadHookExtension[TKey, TValue]
	preSetHooks         []PreSetHookExtension[TKey, TValue]
	postSetHooks        []PostSetHookExtension[TKey, TValue]
	layerPreSetHooks    []LayerPreSetHookExtension[TKey, TValue]
	layerPostSetHooks   []LayerPostSetHookExtension[TKey, TValue]
}

func (r *Repository[TKey, TValue]) getTraceID() uint64 {
	return r.traceCounter.Add(1)
}

// Create a new data repository with the given configuration
func New[TKey comparable, TValue any](config Config[TKey, TValue]) (*Repository[TKey, TValue], error) {
	if len(config.Layers) == 0 {
		return nil, ErrNoLayers
	}

	r := &Repository[TKey, TValue]{
		identifier:       config.Identifier,
		layers:           config.Layers,
		batcherConfig:    config.Batcher,
		defaultLoadFlags: config.DefaultLoadFlags,
	}

	r.registerExtensions(config.Extensions)

	// Execute initialization hooks
	for _, hook := range r.initializationHooks {
		err := hook.InitializationHook(r, config.Layers)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Identifier of this repository
func (r *Repository[TKey, TValue]) Identifier() string { return r.identifier }

// Layers of this repository, from the first to the last
func (r *Repository[TKey, TValue]) Layers() []Layer[TKey, TValue] { return r.layers }

// Loader creates a batcher for one request on top of this repository
func (r *Repository[TKey, TValue]) Loader(ctx context.Context) *Batcher[TKey, TValue] {
	return NewBatcher(ctx, r.Resolve, r.batcherConfig)
}

// Load a data from it's key
func (r *Repository[TKey, TValue]) Load(ctx context.Context, key TKey, flags ...LoadFlag) (TValue, error) {
	values, errors := r.resolve(ctx, []TKey{key}, mergeLoadFlags(r.defaultLoadFlags, flags))
	return values[0], errors[0]
}

// Load a set of data from their keys, results follow the order of the given keys
func (r *Repository[TKey, TValue]) LoadAll(ctx context.Context, keys []TKey, flags ...LoadFlag) ([]TValue, []error) {
	if hasLoadFlag(r.defaultLoadFlags, flags, LoadNoBatch) {
		return r.resolveAll(ctx, keys, mergeLoadFlags(r.defaultLoadFlags, flags))
	}
	loader := r.Loader(ctx)
	thunk := loader.LoadAllThunk(keys)
	loader.Dispatch()
	return thunk()
}

// Resolve is the batch function of the repository, keys must be unique
func (r *Repository[TKey, TValue]) Resolve(ctx context.Context, keys []TKey) ([]TValue, []error) {
	return r.resolve(ctx, keys, r.defaultLoadFlags)
}

// resolveAll resolves keys that might repeat without a batcher
func (r *Repository[TKey, TValue]) resolveAll(ctx context.Context, keys []TKey, flags LoadFlag) ([]TValue, []error) {
	unique := Distinct(keys, func(k TKey) (TKey, bool) { return k, true })
	values, errs := r.resolve(ctx, unique, flags)
	positions := make(map[TKey]int, len(unique))
	for i, k := range unique {
		positions[k] = i
	}
	result := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	for i, k := range keys {
		result[i], errors[i] = values[positions[k]], errs[positions[k]]
	}
	return result, errors
}

func (r *Repository[TKey, TValue]) registerExtensions(extensions []Extension) {
	for _, ext := range extensions {
		if ext, ok := ext.(InitializationHookExtension[TKey, TValue]); ok {
			r.initializationHooks = append(r.initializationHooks, ext)
		}
		if ext, ok := ext.(PreLoadHookExtension[TKey, TValue]); ok {
			r.preLoadHooks = append(r.preLoadHooks, ext)
		}
		if ext, ok := ext.(PostLoadHookExtension[TKey, TValue]); ok {
			r.postLoadHooks = append(r.postLoadHooks, ext)
		}
		if ext, ok := ext.(LayerPreLoadHookExtension[TKey, TValue]); ok {
			r.layerPreLoadHooks = append(r.layerPreLoadHooks, ext)
		}
		if ext, ok := ext.(LayerPostLoadHookExtension[TKey, TValue]); ok {
			r.layerPostLoadHooks = append(r.layerPostLoadHooks, ext)
		}
		if ext, ok := ext.(PreSetHookExtension[TKey, TValue]); ok {
			r.preSetHooks = append(r.preSetHooks, ext)
		}
		if ext, ok := ext.(PostSetHookExtension[TKey, TValue]); ok {
			r.postSetHooks = append(r.postSetHooks, ext)
		}
		if ext, ok := ext.(LayerPreSetHookExtension[TKey, TValue]); ok {
			r.layerPreSetHooks = append(r.layerPreSetHooks, ext)
		}
		if ext, ok := ext.(LayerPostSetHookExtension[TKey, TValue]); ok {
			r.layerPostSetHooks = append(r.layerPostSetHooks, ext)
		}
	}
}
