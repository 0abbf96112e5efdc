package batchload

import "fmt"

// CacheOutcome tags the result of reading one entry from a cache layer
type CacheOutcome uint8

const (
	CacheMiss CacheOutcome = iota
	CacheHit
	CacheInvalid // an entry exists but could not be decoded or failed validation
)

func (o CacheOutcome) String() string {
	switch o {
	case CacheHit:
		return "hit"
	case CacheInvalid:
		return "invalid"
	default:
		return "miss"
	}
}

// CacheEntry is a decoded cache read
type CacheEntry[TValue any] struct {
	Value   TValue
	Outcome CacheOutcome
	Err     error // the decoding or validation failure of an invalid entry
}

// DecodeEntry decodes a raw cached payload, nil raw is a miss. A decoded value
// implementing Validator has to pass validation to be a hit.
func DecodeEntry[TValue any](raw []byte, decode func(raw []byte, value *TValue) error) CacheEntry[TValue] {
	var entry CacheEntry[TValue]
	if raw == nil {
		return entry
	}
	if err := decode(raw, &entry.Value); err != nil {
		return CacheEntry[TValue]{Outcome: CacheInvalid, Err: fmt.Errorf("decode: %w", err)}
	}
	if err := Validate(entry.Value); err != nil {
		return CacheEntry[TValue]{Outcome: CacheInvalid, Err: err}
	}
	entry.Outcome = CacheHit
	return entry
}

// FromEntries shapes cache reads into a layer result. Invalid entries are
// misses carrying the reason.
func FromEntries[TKey comparable, TValue any](keys []TKey, entries []CacheEntry[TValue]) ([]TValue, []error) {
	values := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	for i, k := range keys {
		switch entries[i].Outcome {
		case CacheHit:
			values[i] = entries[i].Value
		case CacheInvalid:
			errors[i] = &InvalidCacheError{Key: k, Err: entries[i].Err}
		default:
			errors[i] = NewErrNotFound(k)
		}
	}
	return values, errors
}

// InvalidCacheError is the miss of a cached entry that could not be used
type InvalidCacheError struct {
	Key any
	Err error
}

func (e *InvalidCacheError) Error() string {
	return fmt.Sprintf("invalid cached value of %v: %v", e.Key, e.Err)
}

func (e *InvalidCacheError) Unwrap() error { return e.Err }

// NotFound makes the next layer resolve the key
func (e *InvalidCacheError) NotFound() bool { return true }
