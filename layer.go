package batchload

import (
	"context"
	"reflect"
)

// Layer is an interface for data layers, they take the data keys and will return the results if available.
// Keys a layer could not resolve, missing or failed, are given into the next data layer to be resolved.
// Results from the last layer are final.
type Layer[TKey comparable, TValue any] interface {
	// Unique identifier for this layer used for logging and metric purposes
	Identifier() string

	// The function that will be called to load values from the given set of keys,
	// a miss is reported with ErrNotFound for that key
	Get(ctx context.Context, keys []TKey) ([]TValue, []error)

	// The function that will be called for setting data to be primed that is resolved by the layers after this
	Set(ctx context.Context, keys []TKey, values []TValue) []error
}

// Deleter is implemented by layers able to drop keys, used on invalidation
type Deleter[TKey comparable] interface {
	Delete(ctx context.Context, keys []TKey) error
}

// Validator is implemented by values that can check their own shape after being
// decoded from a cache, an invalid value is treated as a cache miss
type Validator interface {
	Validate() error
}

// Validate checks v if it implements Validator. A nil pointer is a valid
// cached value, value receivers can't be called on it.
func Validate(v any) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	if validator, ok := v.(Validator); ok {
		return validator.Validate()
	}
	return nil
}

// funcLayer is a read-only layer backed by a batch function
type funcLayer[TKey comparable, TValue any] struct {
	identifier string
	get        BatchFunc[TKey, TValue]
}

// NewLayerFunc wraps a batch function into a read-only layer, usually the source
// of truth at the end of a layer chain
func NewLayerFunc[TKey comparable, TValue any](identifier string, get BatchFunc[TKey, TValue]) Layer[TKey, TValue] {
	return &funcLayer[TKey, TValue]{identifier: identifier, get: get}
}

func (l *funcLayer[TKey, TValue]) Identifier() string { return l.identifier }

func (l *funcLayer[TKey, TValue]) Get(ctx context.Context, keys []TKey) ([]TValue, []error) {
	return l.get(ctx, keys)
}

func (l *funcLayer[TKey, TValue]) Set(ctx context.Context, keys []TKey, values []TValue) []error {
	return nil
}
