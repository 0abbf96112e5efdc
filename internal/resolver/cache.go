package resolver

import (
	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/model"
	"github.com/flowscan/batchload/internal/store"
)

// CacheConfig lists the cache layers put in front of the store, first to last
type CacheConfig struct {
	Batcher  batchload.BatcherConfig
	Users    []batchload.Layer[int64, model.User]
	Partners []batchload.Layer[int64, model.Partner]
	Vendors  []batchload.Layer[int64, model.Vendor]

	// Extensions are registered on the repositories whose key and value types they match
	Extensions []batchload.Extension
}

// Cache holds the repositories shared by every request. The loaders of the
// cached kinds resolve through them instead of going to the store directly.
type Cache struct {
	Users    *batchload.Repository[int64, model.User]
	Partners *batchload.Repository[int64, model.Partner]
	Vendors  *batchload.Repository[int64, model.Vendor]
}

// NewCache builds one repository per cached kind, the store is always the last layer
func NewCache(s store.EntityStore, config CacheConfig) (*Cache, error) {
	users, err := batchload.New(batchload.Config[int64, model.User]{
		Identifier: "users",
		Layers:     chain(config.Users, batchload.NewLayerFunc("store", byID(s.FindUsers, userID))),
		Batcher:    config.Batcher,
		Extensions: config.Extensions,
	})
	if err != nil {
		return nil, err
	}
	partners, err := batchload.New(batchload.Config[int64, model.Partner]{
		Identifier: "partners",
		Layers:     chain(config.Partners, batchload.NewLayerFunc("store", byID(s.FindPartners, partnerID))),
		Batcher:    config.Batcher,
		Extensions: config.Extensions,
	})
	if err != nil {
		return nil, err
	}
	vendors, err := batchload.New(batchload.Config[int64, model.Vendor]{
		Identifier: "vendors",
		Layers:     chain(config.Vendors, batchload.NewLayerFunc("store", byID(s.FindVendors, vendorID))),
		Batcher:    config.Batcher,
		Extensions: config.Extensions,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{Users: users, Partners: partners, Vendors: vendors}, nil
}

func chain[TValue any](layers []batchload.Layer[int64, TValue], last batchload.Layer[int64, TValue]) []batchload.Layer[int64, TValue] {
	result := make([]batchload.Layer[int64, TValue], 0, len(layers)+1)
	result = append(result, layers...)
	return append(result, last)
}
