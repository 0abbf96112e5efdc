// Package resolver builds the request scoped loaders of every entity kind.
// Loaders of joined views resolve their relations with one bulk lookup per
// related kind, going through the loaders of that kind so that concurrent
// lookups of the same request share batches.
package resolver

import (
	"context"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/model"
	"github.com/flowscan/batchload/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options of the loaders
type Options struct {
	// Batcher configures the batch window of every loader
	Batcher batchload.BatcherConfig

	// Cache is optional, when set users, partners and vendors resolve through it
	Cache *Cache

	// Logger to write to, the global zerolog logger if nil
	Logger *zerolog.Logger
}

// Loaders holds one batcher per entity kind for a single request
type Loaders struct {
	Users     *batchload.Batcher[int64, model.User]
	Partners  *batchload.Batcher[int64, model.Partner]
	Vendors   *batchload.Batcher[int64, model.Vendor]
	Buyers    *batchload.Batcher[int64, model.BuyerView]
	Hashtags  *batchload.Batcher[int64, model.Hashtag]
	Posts     *batchload.Batcher[int64, model.PostView]
	Comments  *batchload.Batcher[int64, model.CommentView]
	Replies   *batchload.Batcher[int64, model.ReplyView]
	Messages  *batchload.Batcher[int64, model.MessageView]
	Campaigns *batchload.Batcher[int64, model.CampaignView]
	Banners   *batchload.Batcher[int64, model.BannerView]

	// records without their relations, used by the joins
	PostRecords     *batchload.Batcher[int64, model.Post]
	CommentRecords  *batchload.Batcher[int64, model.Comment]
	CampaignRecords *batchload.Batcher[int64, model.Campaign]

	// like counts per target id, targets without likes count 0
	PostLikeCounts    *batchload.Batcher[int64, int64]
	CommentLikeCounts *batchload.Batcher[int64, int64]
	ReplyLikeCounts   *batchload.Batcher[int64, int64]

	// keyed by the viewed user and the requesting user
	Relationships *batchload.Batcher[model.Key, model.Relationship]

	// keyed by the post and the requesting user
	LikedPosts *batchload.Batcher[model.Key, bool]

	store  store.EntityStore
	logger *zerolog.Logger
}

// New creates the loaders of one request, ctx is the context of that request
func New(ctx context.Context, s store.EntityStore, opts Options) *Loaders {
	l := &Loaders{store: s, logger: opts.Logger}
	if l.logger == nil {
		l.logger = &log.Logger
	}
	cfg := opts.Batcher

	if opts.Cache != nil {
		l.Users = opts.Cache.Users.Loader(ctx)
		l.Partners = opts.Cache.Partners.Loader(ctx)
		l.Vendors = opts.Cache.Vendors.Loader(ctx)
	} else {
		l.Users = batchload.NewBatcher(ctx, byID(s.FindUsers, userID), cfg)
		l.Partners = batchload.NewBatcher(ctx, byID(s.FindPartners, partnerID), cfg)
		l.Vendors = batchload.NewBatcher(ctx, byID(s.FindVendors, vendorID), cfg)
	}
	l.Hashtags = batchload.NewBatcher(ctx, byID(s.FindHashtags, func(h model.Hashtag) int64 { return h.ID }), cfg)

	l.PostRecords = batchload.NewBatcher(ctx, byID(s.FindPosts, func(p model.Post) int64 { return p.ID }), cfg)
	l.CommentRecords = batchload.NewBatcher(ctx, byID(s.FindComments, func(c model.Comment) int64 { return c.ID }), cfg)
	l.CampaignRecords = batchload.NewBatcher(ctx, byID(s.FindCampaigns, func(c model.Campaign) int64 { return c.ID }), cfg)

	l.PostLikeCounts = batchload.NewBatcher(ctx, l.likeCounts(model.LikePost), cfg)
	l.CommentLikeCounts = batchload.NewBatcher(ctx, l.likeCounts(model.LikeComment), cfg)
	l.ReplyLikeCounts = batchload.NewBatcher(ctx, l.likeCounts(model.LikeReply), cfg)

	l.Posts = batchload.NewBatcher(ctx, l.posts, cfg)
	l.Comments = batchload.NewBatcher(ctx, l.comments, cfg)
	l.Replies = batchload.NewBatcher(ctx, l.replies, cfg)
	l.Messages = batchload.NewBatcher(ctx, l.messages, cfg)
	l.Campaigns = batchload.NewBatcher(ctx, l.campaigns, cfg)
	l.Buyers = batchload.NewBatcher(ctx, l.buyers, cfg)
	l.Banners = batchload.NewBatcher(ctx, l.banners, cfg)
	l.Relationships = batchload.NewBatcher(ctx, l.relationships, cfg)
	l.LikedPosts = batchload.NewBatcher(ctx, l.liked(model.LikePost), cfg)
	return l
}

// byID turns a bulk lookup into a batch function, ids without a record are not found
func byID[TValue any](find func(ctx context.Context, ids []int64) ([]TValue, error), id func(TValue) int64) batchload.BatchFunc[int64, TValue] {
	return func(ctx context.Context, keys []int64) ([]TValue, []error) {
		records, err := find(ctx, keys)
		if err != nil {
			return batchload.FailAll[TValue](len(keys), err)
		}
		return batchload.Align(keys, batchload.IndexBy(records, id))
	}
}

func userID(u model.User) int64       { return u.ID }
func partnerID(p model.Partner) int64 { return p.ID }
func vendorID(v model.Vendor) int64   { return v.ID }

func (l *Loaders) likeCounts(target model.LikeTarget) batchload.BatchFunc[int64, int64] {
	return func(ctx context.Context, keys []int64) ([]int64, []error) {
		counts, err := l.store.CountLikes(ctx, target, keys)
		if err != nil {
			return batchload.FailAll[int64](len(keys), err)
		}
		values := make([]int64, len(keys))
		for i, k := range keys {
			values[i] = counts[k]
		}
		return values, nil
	}
}

func (l *Loaders) liked(target model.LikeTarget) batchload.BatchFunc[model.Key, bool] {
	return func(ctx context.Context, keys []model.Key) ([]bool, []error) {
		likes, err := l.store.FindLikesBy(ctx, target, keys)
		if err != nil {
			return batchload.FailAll[bool](len(keys), err)
		}
		found := make(map[model.Key]struct{}, len(likes))
		for _, like := range likes {
			found[model.Key{EntityID: like.TargetID, RequesterID: like.UserID}] = struct{}{}
		}
		values := make([]bool, len(keys))
		for i, k := range keys {
			_, values[i] = found[k]
		}
		return values, nil
	}
}

// dangling records a broken relation and returns the error of its entity
func (l *Loaders) dangling(kind string, id int64, relation string, relatedID int64) error {
	l.logger.Warn().
		Str("kind", kind).
		Int64("id", id).
		Str("relation", relation).
		Int64("relatedId", relatedID).
		Msg("Dangling reference.")
	return &DanglingReferenceError{Kind: kind, ID: id, Relation: relation, RelatedID: relatedID}
}
