package batchload

import (
	"context"
	"sync"
)

// SetAll writes the values to the layers picked by the options.
// The result holds one error slice per layer, nil for the layers left untouched.
func (r *Repository[TKey, TValue]) SetAll(ctx context.Context, keys []TKey, values []TValue, options ...SetOption) [][]error {
	plan := newSetPlan(options)
	return r.set(ctx, plan.layers(len(r.layers)), keys, values, plan.sequential)
}

// Set a single data to all of layers, returns the first error of each layer
func (r *Repository[TKey, TValue]) Set(ctx context.Context, key TKey, value TValue, options ...SetOption) []error {
	return firstErrors(r.SetAll(ctx, []TKey{key}, []TValue{value}, options...))
}

func (r *Repository[TKey, TValue]) set(ctx context.Context, layerIndexes []int, keys []TKey, values []TValue, sequential bool) [][]error {
	var traceID = r.getTraceID()
	var errors = make([][]error, len(r.layers))

	for _, hook := range r.preSetHooks {
		hook.PreSetHook(traceID, keys, values)
	}

	if sequential {
		for _, layerIndex := range layerIndexes {
			errors[layerIndex] = r.layerSet(ctx, traceID, layerIndex, keys, values)
		}
	} else {
		wg := sync.WaitGroup{}
		wg.Add(len(layerIndexes))
		for _, layerIndex := range layerIndexes {
			go func(layerIndex int) {
				defer wg.Done()
				errors[layerIndex] = r.layerSet(ctx, traceID, layerIndex, keys, values)
			}(layerIndex)
		}
		wg.Wait()
	}

	for _, hook := range r.postSetHooks {
		hook.PostSetHook(traceID, keys, values, errors)
	}

	return errors
}

func (r *Repository[TKey, TValue]) layerSet(ctx context.Context, traceID uint64, layerIndex int, keys []TKey, values []TValue) []error {
	layer := r.layers[layerIndex]

	for _, hook := range r.layerPreSetHooks {
		hook.LayerPreSetHook(traceID, layerIndex, layer, keys, values)
	}

	errors := layer.Set(ctx, keys, values)

	for _, hook := range r.layerPostSetHooks {
		hook.LayerPostSetHook(traceID, layerIndex, layer, keys, values, errors)
	}

	return errors
}

// Invalidate drops the given keys from every layer able to delete them,
// returns one error per layer
func (r *Repository[TKey, TValue]) Invalidate(ctx context.Context, keys []TKey) []error {
	errors := make([]error, len(r.layers))
	for i, layer := range r.layers {
		if deleter, ok := layer.(Deleter[TKey]); ok {
			errors[i] = deleter.Delete(ctx, keys)
		}
	}
	return errors
}

// take the first error of every layer out of a set result
func firstErrors(original [][]error) []error {
	result := make([]error, len(original))
	for i, layerErrors := range original {
		for _, err := range layerErrors {
			if err != nil {
				result[i] = err
				break
			}
		}
	}
	return result
}
