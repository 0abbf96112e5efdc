package batchload

import "context"

// StaticKey is the only key of a static repository, a static repository doesn't
// have any keys, therefore we need to mock the key in the static repository API
type StaticKey struct{}

// StaticRepository is a special type of repository where a key or input
// is not required to fetch data from the repository
type StaticRepository[TValue any] struct {
	repo *Repository[StaticKey, TValue]
}

// NewStatic creates a static repository, layers are keyed by StaticKey
func NewStatic[TValue any](config Config[StaticKey, TValue]) (*StaticRepository[TValue], error) {
	repo, err := New(config)
	if err != nil {
		return nil, err
	}
	return &StaticRepository[TValue]{repo: repo}, nil
}

// NewStaticLayer wraps a key-less loader into the last layer of a static repository
func NewStaticLayer[TValue any](identifier string, fn func(ctx context.Context) (TValue, error)) Layer[StaticKey, TValue] {
	return NewLayerFunc(identifier, Batchify(func(ctx context.Context, _ StaticKey) (TValue, error) {
		return fn(ctx)
	}))
}

// Get data from the repository
func (r *StaticRepository[TValue]) Get(ctx context.Context, flags ...LoadFlag) (TValue, error) {
	return r.repo.Load(ctx, StaticKey{}, flags...)
}

// Set the repository data to all of the layers
// Returns an array of errors with each item represents an error returned by a layer
func (r *StaticRepository[TValue]) Set(ctx context.Context, value TValue, options ...SetOption) []error {
	return r.repo.Set(ctx, StaticKey{}, value, options...)
}

// Invalidate drops the data from every layer able to delete it
func (r *StaticRepository[TValue]) Invalidate(ctx context.Context) []error {
	return r.repo.Invalidate(ctx, []StaticKey{{}})
}
