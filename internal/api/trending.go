package api

import (
	"context"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/model"
	"github.com/flowscan/batchload/internal/store"
)

// NewTrending creates the repository of the trending hashtags. The cache layer
// is optional and goes in front of the store.
func NewTrending(s store.EntityStore, cache batchload.Layer[batchload.StaticKey, []model.Hashtag], extensions ...batchload.Extension) (*batchload.StaticRepository[[]model.Hashtag], error) {
	var layers []batchload.Layer[batchload.StaticKey, []model.Hashtag]
	if cache != nil {
		layers = append(layers, cache)
	}
	layers = append(layers, batchload.NewStaticLayer("store", func(ctx context.Context) ([]model.Hashtag, error) {
		return s.TrendingHashtags(ctx, trendingLimit)
	}))
	return batchload.NewStatic(batchload.Config[batchload.StaticKey, []model.Hashtag]{
		Identifier: "trending",
		Layers:     layers,
		Extensions: extensions,
	})
}
