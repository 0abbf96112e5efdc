// Package store provides the read side of the entity store: one bulk lookup
// per entity kind. Lookups accept an empty id list and silently omit ids
// without a record.
package store

import (
	"context"

	"github.com/flowscan/batchload/internal/model"
)

type EntityStore interface {
	FindUsers(ctx context.Context, ids []int64) ([]model.User, error)
	FindPosts(ctx context.Context, ids []int64) ([]model.Post, error)
	FindComments(ctx context.Context, ids []int64) ([]model.Comment, error)
	FindReplies(ctx context.Context, ids []int64) ([]model.Reply, error)
	FindMessages(ctx context.Context, ids []int64) ([]model.Message, error)
	FindHashtags(ctx context.Context, ids []int64) ([]model.Hashtag, error)
	FindPartners(ctx context.Context, ids []int64) ([]model.Partner, error)
	FindVendors(ctx context.Context, ids []int64) ([]model.Vendor, error)
	FindBuyers(ctx context.Context, ids []int64) ([]model.Buyer, error)
	FindCampaigns(ctx context.Context, ids []int64) ([]model.Campaign, error)
	FindBanners(ctx context.Context, ids []int64) ([]model.Banner, error)

	// FindPostHashtags returns the hashtag links of the given posts
	FindPostHashtags(ctx context.Context, postIDs []int64) ([]model.PostHashtag, error)

	// FindMentions returns the mentions of the given posts
	FindMentions(ctx context.Context, postIDs []int64) ([]model.Mention, error)

	// CountLikes returns the number of likes per target id, targets without likes are omitted
	CountLikes(ctx context.Context, target model.LikeTarget, ids []int64) (map[int64]int64, error)

	// FindLikesBy returns the likes of each key requester on each key entity
	FindLikesBy(ctx context.Context, target model.LikeTarget, keys []model.Key) ([]model.Like, error)

	// FindEdges returns the edges between each key entity and requester, in both directions
	FindEdges(ctx context.Context, keys []model.Key) ([]model.Edge, error)

	// CountInteractions returns the views and clicks per banner, banners without interactions are omitted
	CountInteractions(ctx context.Context, bannerIDs []int64) (map[int64]model.InteractionCounts, error)

	// TrendingHashtags returns the hashtags used by most posts
	TrendingHashtags(ctx context.Context, limit int) ([]model.Hashtag, error)
}

// keyPairs indexes keys both ways so edges and likes can be matched against them
func keyPairs(keys []model.Key) map[model.Key]struct{} {
	pairs := make(map[model.Key]struct{}, 2*len(keys))
	for _, k := range keys {
		pairs[k] = struct{}{}
		pairs[model.Key{EntityID: k.RequesterID, RequesterID: k.EntityID}] = struct{}{}
	}
	return pairs
}

func keySides(keys []model.Key) (entities []int64, requesters []int64) {
	seenE := make(map[int64]struct{}, len(keys))
	seenR := make(map[int64]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seenE[k.EntityID]; !ok {
			seenE[k.EntityID] = struct{}{}
			entities = append(entities, k.EntityID)
		}
		if _, ok := seenR[k.RequesterID]; !ok {
			seenR[k.RequesterID] = struct{}{}
			requesters = append(requesters, k.RequesterID)
		}
	}
	return entities, requesters
}
