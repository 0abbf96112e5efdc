package batchload

import (
	"errors"
	"fmt"
)

// Indicates that the given key is not able to be resolved
type ErrNotFound[TKey any] struct {
	key TKey
}

func (m ErrNotFound[TKey]) Error() string {
	return fmt.Sprintf("not found: (%v)", m.key)
}

// Key returns the key that could not be resolved
func (m ErrNotFound[TKey]) Key() TKey { return m.key }

// NotFound marks the error as a missing key, see IsNotFound
func (m ErrNotFound[TKey]) NotFound() bool { return true }

func NewErrNotFound[TKey any](key TKey) ErrNotFound[TKey] {
	return ErrNotFound[TKey]{
		key: key,
	}
}

// IsNotFound reports whether err, or any error it wraps, is a missing key error
// of any key type. Batch failures are never reported as not found.
func IsNotFound(err error) bool {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return false
	}
	var nf interface{ NotFound() bool }
	return errors.As(err, &nf) && nf.NotFound()
}

// BatchError is returned for every key of a batch when the bulk fetch of that
// batch failed as a whole
type BatchError struct {
	Size int   // number of unique keys in the failed batch
	Err  error // the error returned by the bulk fetch
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch of %d keys failed: %v", e.Size, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// IsBatchError reports whether err is caused by a failed bulk fetch
func IsBatchError(err error) bool {
	var batchErr *BatchError
	return errors.As(err, &batchErr)
}

// returned when a layer or batch function does not return one result per key
type errLayerShape struct {
	keys, values, errors int
}

func (e errLayerShape) Error() string {
	return fmt.Sprintf("expected %d results, got %d values and %d errors", e.keys, e.values, e.errors)
}
