package batchload

// Configuration for a repository
type Config[TKey comparable, TValue any] struct {
	// Identifier for this repository
	Identifier string

	// Configuration for the request scoped batchers created by the repository
	Batcher BatcherConfig

	// The data resolver layers for this repository, executed from the first to the last
	Layers []Layer[TKey, TValue]

	// Default load flags
	DefaultLoadFlags LoadFlag

	// Array of extensions to be used
	Extensions []Extension
}
