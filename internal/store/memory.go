package store

import (
	"context"
	"sort"
	"sync"

	"github.com/flowscan/batchload/internal/model"
)

// Memory is an in-memory entity store. It records every call and the ids it
// was asked for, and can be told to fail a method.
type Memory struct {
	seed Seed

	users     map[int64]model.User
	posts     map[int64]model.Post
	comments  map[int64]model.Comment
	replies   map[int64]model.Reply
	messages  map[int64]model.Message
	hashtags  map[int64]model.Hashtag
	partners  map[int64]model.Partner
	vendors   map[int64]model.Vendor
	buyers    map[int64]model.Buyer
	campaigns map[int64]model.Campaign
	banners   map[int64]model.Banner

	mu       sync.Mutex
	calls    map[string]int
	requests map[string][][]int64
	failures map[string]error
}

// NewMemory creates a memory store holding the given records
func NewMemory(seed Seed) *Memory {
	return &Memory{
		seed:      seed,
		users:     index(seed.Users, func(v model.User) int64 { return v.ID }),
		posts:     index(seed.Posts, func(v model.Post) int64 { return v.ID }),
		comments:  index(seed.Comments, func(v model.Comment) int64 { return v.ID }),
		replies:   index(seed.Replies, func(v model.Reply) int64 { return v.ID }),
		messages:  index(seed.Messages, func(v model.Message) int64 { return v.ID }),
		hashtags:  index(seed.Hashtags, func(v model.Hashtag) int64 { return v.ID }),
		partners:  index(seed.Partners, func(v model.Partner) int64 { return v.ID }),
		vendors:   index(seed.Vendors, func(v model.Vendor) int64 { return v.ID }),
		buyers:    index(seed.Buyers, func(v model.Buyer) int64 { return v.ID }),
		campaigns: index(seed.Campaigns, func(v model.Campaign) int64 { return v.ID }),
		banners:   index(seed.Banners, func(v model.Banner) int64 { return v.ID }),
		calls:     make(map[string]int),
		requests:  make(map[string][][]int64),
		failures:  make(map[string]error),
	}
}

// Calls returns how many times the given method was called
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Requests returns the id lists the given method was called with
func (m *Memory) Requests(method string) [][]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]int64(nil), m.requests[method]...)
}

// Fail makes every following call of the given method return err, nil restores it
func (m *Memory) Fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

func (m *Memory) record(ctx context.Context, method string, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	m.requests[method] = append(m.requests[method], append([]int64(nil), ids...))
	if err := m.failures[method]; err != nil {
		return err
	}
	return ctx.Err()
}

func (m *Memory) FindUsers(ctx context.Context, ids []int64) ([]model.User, error) {
	if err := m.record(ctx, "FindUsers", ids); err != nil {
		return nil, err
	}
	return pick(m.users, ids), nil
}

func (m *Memory) FindPosts(ctx context.Context, ids []int64) ([]model.Post, error) {
	if err := m.record(ctx, "FindPosts", ids); err != nil {
		return nil, err
	}
	return pick(m.posts, ids), nil
}

func (m *Memory) FindComments(ctx context.Context, ids []int64) ([]model.Comment, error) {
	if err := m.record(ctx, "FindComments", ids); err != nil {
		return nil, err
	}
	return pick(m.comments, ids), nil
}

func (m *Memory) FindReplies(ctx context.Context, ids []int64) ([]model.Reply, error) {
	if err := m.record(ctx, "FindReplies", ids); err != nil {
		return nil, err
	}
	return pick(m.replies, ids), nil
}

func (m *Memory) FindMessages(ctx context.Context, ids []int64) ([]model.Message, error) {
	if err := m.record(ctx, "FindMessages", ids); err != nil {
		return nil, err
	}
	return pick(m.messages, ids), nil
}

func (m *Memory) FindHashtags(ctx context.Context, ids []int64) ([]model.Hashtag, error) {
	if err := m.record(ctx, "FindHashtags", ids); err != nil {
		return nil, err
	}
	return pick(m.hashtags, ids), nil
}

func (m *Memory) FindPartners(ctx context.Context, ids []int64) ([]model.Partner, error) {
	if err := m.record(ctx, "FindPartners", ids); err != nil {
		return nil, err
	}
	return pick(m.partners, ids), nil
}

func (m *Memory) FindVendors(ctx context.Context, ids []int64) ([]model.Vendor, error) {
	if err := m.record(ctx, "FindVendors", ids); err != nil {
		return nil, err
	}
	return pick(m.vendors, ids), nil
}

func (m *Memory) FindBuyers(ctx context.Context, ids []int64) ([]model.Buyer, error) {
	if err := m.record(ctx, "FindBuyers", ids); err != nil {
		return nil, err
	}
	return pick(m.buyers, ids), nil
}

func (m *Memory) FindCampaigns(ctx context.Context, ids []int64) ([]model.Campaign, error) {
	if err := m.record(ctx, "FindCampaigns", ids); err != nil {
		return nil, err
	}
	return pick(m.campaigns, ids), nil
}

func (m *Memory) FindBanners(ctx context.Context, ids []int64) ([]model.Banner, error) {
	if err := m.record(ctx, "FindBanners", ids); err != nil {
		return nil, err
	}
	return pick(m.banners, ids), nil
}

func (m *Memory) FindPostHashtags(ctx context.Context, postIDs []int64) ([]model.PostHashtag, error) {
	if err := m.record(ctx, "FindPostHashtags", postIDs); err != nil {
		return nil, err
	}
	wanted := set(postIDs)
	var result []model.PostHashtag
	for _, ph := range m.seed.PostHashtags {
		if _, ok := wanted[ph.PostID]; ok {
			result = append(result, ph)
		}
	}
	return result, nil
}

func (m *Memory) FindMentions(ctx context.Context, postIDs []int64) ([]model.Mention, error) {
	if err := m.record(ctx, "FindMentions", postIDs); err != nil {
		return nil, err
	}
	wanted := set(postIDs)
	var result []model.Mention
	for _, mention := range m.seed.Mentions {
		if _, ok := wanted[mention.PostID]; ok {
			result = append(result, mention)
		}
	}
	return result, nil
}

func (m *Memory) CountLikes(ctx context.Context, target model.LikeTarget, ids []int64) (map[int64]int64, error) {
	if err := m.record(ctx, "CountLikes", ids); err != nil {
		return nil, err
	}
	wanted := set(ids)
	counts := make(map[int64]int64)
	for _, like := range m.seed.Likes {
		if _, ok := wanted[like.TargetID]; ok && like.TargetKind == target {
			counts[like.TargetID]++
		}
	}
	return counts, nil
}

func (m *Memory) FindLikesBy(ctx context.Context, target model.LikeTarget, keys []model.Key) ([]model.Like, error) {
	entities, _ := keySides(keys)
	if err := m.record(ctx, "FindLikesBy", entities); err != nil {
		return nil, err
	}
	wanted := make(map[model.Key]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	var result []model.Like
	for _, like := range m.seed.Likes {
		if _, ok := wanted[model.Key{EntityID: like.TargetID, RequesterID: like.UserID}]; ok && like.TargetKind == target {
			result = append(result, like)
		}
	}
	return result, nil
}

func (m *Memory) FindEdges(ctx context.Context, keys []model.Key) ([]model.Edge, error) {
	entities, _ := keySides(keys)
	if err := m.record(ctx, "FindEdges", entities); err != nil {
		return nil, err
	}
	pairs := keyPairs(keys)
	var result []model.Edge
	for _, edge := range m.seed.Edges {
		if _, ok := pairs[model.Key{EntityID: edge.FromID, RequesterID: edge.ToID}]; ok {
			result = append(result, edge)
		}
	}
	return result, nil
}

func (m *Memory) CountInteractions(ctx context.Context, bannerIDs []int64) (map[int64]model.InteractionCounts, error) {
	if err := m.record(ctx, "CountInteractions", bannerIDs); err != nil {
		return nil, err
	}
	wanted := set(bannerIDs)
	counts := make(map[int64]model.InteractionCounts)
	for _, interaction := range m.seed.Interactions {
		if _, ok := wanted[interaction.BannerID]; !ok {
			continue
		}
		c := counts[interaction.BannerID]
		c.BannerID = interaction.BannerID
		switch interaction.Kind {
		case model.InteractionView:
			c.Views++
		case model.InteractionClick:
			c.Clicks++
		}
		counts[interaction.BannerID] = c
	}
	return counts, nil
}

func (m *Memory) TrendingHashtags(ctx context.Context, limit int) ([]model.Hashtag, error) {
	if err := m.record(ctx, "TrendingHashtags", nil); err != nil {
		return nil, err
	}
	uses := make(map[int64]int)
	for _, ph := range m.seed.PostHashtags {
		uses[ph.HashtagID]++
	}
	result := make([]model.Hashtag, 0, len(uses))
	for id := range uses {
		if h, ok := m.hashtags[id]; ok {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if uses[result[i].ID] != uses[result[j].ID] {
			return uses[result[i].ID] > uses[result[j].ID]
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func index[T any](items []T, id func(T) int64) map[int64]T {
	result := make(map[int64]T, len(items))
	for _, item := range items {
		result[id(item)] = item
	}
	return result
}

// pick returns the records of the given ids in id order, missing ids are skipped
func pick[T any](records map[int64]T, ids []int64) []T {
	result := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := records[id]; ok {
			result = append(result, v)
		}
	}
	return result
}

func set(ids []int64) map[int64]struct{} {
	result := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		result[id] = struct{}{}
	}
	return result
}
