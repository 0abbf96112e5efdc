package batchload

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Load a set of unique keys through the layers and prime the layers with the data resolved by the next layer
func (r *Repository[TKey, TValue]) resolve(ctx context.Context, keys []TKey, flags LoadFlag) ([]TValue, []error) {
	var keysCount = len(keys)
	var result = make([]TValue, keysCount) // array containing the final result of values
	var errors = make([]error, keysCount)  // array containing errors for each keys

	var resultIndexes = generateSequence(keysCount) // an array of indexes from the current layer's array to the original result array
	var layerKeys = keys                            // set of keys to be resolved by the current layer

	var traceID = r.getTraceID()

	for _, hook := range r.preLoadHooks {
		hook.PreLoadHook(traceID, keys)
	}

	firstLayer := 0
	if flags&LoadSkipCache != 0 {
		firstLayer = len(r.layers) - 1
	}
	lastLayer := len(r.layers) - 1

	// iterate over all data layers from the beginning to the end
	// if any of the results are empty, try resolving the data from the next layer
	for layerIndex := firstLayer; layerIndex <= lastLayer && len(layerKeys) > 0; layerIndex++ {
		layer := r.layers[layerIndex]

		for _, hook := range r.layerPreLoadHooks {
			hook.LayerPreLoadHook(traceID, layerIndex, layer, layerKeys)
		}

		layerResult, layerErrors := layer.Get(ctx, layerKeys)
		layerResult, layerErrors = normalizeLayerResult(layerKeys, layerResult, layerErrors)

		for _, hook := range r.layerPostLoadHooks {
			hook.LayerPostLoadHook(traceID, layerIndex, layer, layerKeys, layerResult, layerErrors)
		}

		resolvedLayerIndexes, resolvedLayerKeys, resolvedLayerValues, unresolvedLayerIndexes, unresolvedLayerKeys, unresolvedLayerErrors := group(layerKeys, layerResult, layerErrors)

		if len(resolvedLayerKeys) > 0 {
			resolvedResultIndexes := extract(resultIndexes, resolvedLayerIndexes)

			// merge the resolved values to the result and clear errors from previous layers
			mergeWithIndexes(result, resolvedLayerValues, resolvedResultIndexes)
			setZero(errors, resolvedResultIndexes)

			// prime the data on the previous layers
			for i := layerIndex - 1; i >= 0; i-- {
				go r.layerSet(context.WithoutCancel(ctx), traceID, i, resolvedLayerKeys, resolvedLayerValues)
			}
		}

		// a failing cache is only a miss, the next layer gets a chance
		if layerIndex < lastLayer {
			for i, err := range unresolvedLayerErrors {
				if !IsNotFound(err) {
					log.Warn().Err(err).
						Str("repository", r.identifier).
						Str("layer", layer.Identifier()).
						Msgf("layer failed to load key %v", unresolvedLayerKeys[i])
				}
			}
		}

		// merge the errors to the result
		mergeWithIndexes(errors, unresolvedLayerErrors, extract(resultIndexes, unresolvedLayerIndexes))

		// load the unresolved data from the next layer
		layerKeys = unresolvedLayerKeys
		resultIndexes = extract(resultIndexes, unresolvedLayerIndexes)
	}

	for _, hook := range r.postLoadHooks {
		hook.PostLoadHook(traceID, keys, result, errors)
	}

	return result, errors
}

// normalizeLayerResult shapes a layer output to one value and one error per key
func normalizeLayerResult[TKey comparable, TValue any](keys []TKey, values []TValue, errors []error) ([]TValue, []error) {
	if len(errors) == 1 && len(keys) > 1 {
		if errors[0] != nil {
			return failAll[TValue](len(keys), errors[0])
		}
		errors = nil
	}
	if errors == nil {
		errors = make([]error, len(keys))
	}
	if values == nil {
		values = make([]TValue, len(keys))
	}
	if len(values) != len(keys) || len(errors) != len(keys) {
		return failAll[TValue](len(keys), errLayerShape{keys: len(keys), values: len(values), errors: len(errors)})
	}
	return values, errors
}

// extract a layer resolver result
func group[TKey comparable, TValue any](keys []TKey, values []TValue, errors []error) (
	[]int,
	[]TKey,
	[]TValue,
	[]int,
	[]TKey,
	[]error,
) {
	resolvedIndexes := make([]int, 0, len(keys))
	resolvedKeys := make([]TKey, 0, len(keys))
	resolvedValues := make([]TValue, 0, len(keys))
	unresolvedIndexes := make([]int, 0, len(keys))
	unresolvedKeys := make([]TKey, 0, len(keys))
	unresolvedErrors := make([]error, 0, len(keys))
	for i := range keys {
		if errors[i] == nil {
			resolvedIndexes = append(resolvedIndexes, i)
			resolvedKeys = append(resolvedKeys, keys[i])
			resolvedValues = append(resolvedValues, values[i])
		} else {
			unresolvedIndexes = append(unresolvedIndexes, i)
			unresolvedKeys = append(unresolvedKeys, keys[i])
			unresolvedErrors = append(unresolvedErrors, errors[i])
		}
	}
	return resolvedIndexes, resolvedKeys, resolvedValues, unresolvedIndexes, unresolvedKeys, unresolvedErrors
}

// write the values from the source array into the destination array based on the given indexes
func mergeWithIndexes[T any](destination []T, source []T, indexes []int) {
	for i, dstIndex := range indexes {
		destination[dstIndex] = source[i]
	}
}

// set the elements in the destination array to zero
func setZero[T any](destination []T, indexes []int) {
	var zero T
	for _, dstIndex := range indexes {
		destination[dstIndex] = zero
	}
}

// extract an array from the original array using the given indexes
func extract[T any](source []T, indexes []int) []T {
	result := make([]T, len(indexes))
	for i, v := range indexes {
		result[i] = source[v]
	}
	return result
}

// generate a sequence of integers starting from 0
func generateSequence(count int) []int {
	arr := make([]int, count)
	for i := 0; i < count; i++ {
		arr[i] = i
	}
	return arr
}
