package batchload

import (
	"context"
	"sync"
)

// Handler is any function that takes a model key and will return the model value
type Handler[TKey comparable, TValue any] func(ctx context.Context, key TKey) (TValue, error)

// Convert a handler into a batch function, each keys will be handled in parallel
func Batchify[TKey comparable, TValue any](f Handler[TKey, TValue]) BatchFunc[TKey, TValue] {
	return func(ctx context.Context, keys []TKey) ([]TValue, []error) {
		values := make([]TValue, len(keys))
		errors := make([]error, len(keys))
		wg := sync.WaitGroup{}
		for i := range keys {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				value, err := f(ctx, keys[i])
				if err != nil {
					errors[i] = err
				} else {
					values[i] = value
				}
			}(i)
		}
		wg.Wait()
		return values, errors
	}
}

// Convert a batch function to a single handler
func Singlify[TKey comparable, TValue any](f BatchFunc[TKey, TValue]) Handler[TKey, TValue] {
	return func(ctx context.Context, key TKey) (TValue, error) {
		result, errors := f(ctx, []TKey{key})
		if len(errors) > 0 && errors[0] != nil {
			return zero[TValue](), errors[0]
		}
		if len(result) == 0 {
			return zero[TValue](), NewErrNotFound(key)
		}
		return result[0], nil
	}
}

// Present drops the missing keys from a LoadAll result. The first error that is
// not a missing key is returned instead.
func Present[TValue any](values []TValue, errors []error) ([]TValue, error) {
	result := make([]TValue, 0, len(values))
	for i, v := range values {
		if i < len(errors) && errors[i] != nil {
			if IsNotFound(errors[i]) {
				continue
			}
			return nil, errors[i]
		}
		result = append(result, v)
	}
	return result, nil
}

// Distinct returns the unique values produced by fn, in order of first appearance
func Distinct[T any, TKey comparable](items []T, fn func(item T) (TKey, bool)) []TKey {
	seen := make(map[TKey]struct{}, len(items))
	result := make([]TKey, 0, len(items))
	for _, item := range items {
		k, ok := fn(item)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result
}

// IndexBy maps every item by the key returned by fn, the last item wins on collisions
func IndexBy[T any, TKey comparable](items []T, fn func(item T) TKey) map[TKey]T {
	result := make(map[TKey]T, len(items))
	for _, item := range items {
		result[fn(item)] = item
	}
	return result
}

// GroupBy groups items by the key returned by fn, keeping their relative order
func GroupBy[T any, TKey comparable](items []T, fn func(item T) TKey) map[TKey][]T {
	result := make(map[TKey][]T)
	for _, item := range items {
		k := fn(item)
		result[k] = append(result[k], item)
	}
	return result
}

// Align resolves every key from the index built out of a bulk fetch.
// Keys missing from the index get a not found error.
func Align[TKey comparable, TValue any](keys []TKey, index map[TKey]TValue) ([]TValue, []error) {
	values := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	for i, k := range keys {
		if v, ok := index[k]; ok {
			values[i] = v
		} else {
			errors[i] = NewErrNotFound(k)
		}
	}
	return values, errors
}

func fillArray[T any](arr []T, value T) []T {
	for i := range arr {
		arr[i] = value
	}
	return arr
}

// Return the zero value of the given generic type
func zero[T any]() T {
	var zero T
	return zero
}
