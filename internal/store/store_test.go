package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/flowscan/batchload/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixture() Seed {
	return Seed{
		Users: []model.User{
			{ID: 1, Username: "ada", DisplayName: "Ada", CreatedAt: created},
			{ID: 2, Username: "bob", DisplayName: "Bob", CreatedAt: created},
			{ID: 3, Username: "cyd", DisplayName: "Cyd", CreatedAt: created},
		},
		Edges: []model.Edge{
			{ID: 1, FromID: 1, ToID: 2, Kind: model.EdgeFollow, CreatedAt: created},
			{ID: 2, FromID: 2, ToID: 1, Kind: model.EdgeFollow, CreatedAt: created},
			{ID: 3, FromID: 3, ToID: 1, Kind: model.EdgeBlock, CreatedAt: created},
			{ID: 4, FromID: 2, ToID: 3, Kind: model.EdgeFollow, CreatedAt: created},
		},
		Posts: []model.Post{
			{ID: 10, AuthorID: 1, Body: "hello", CreatedAt: created},
			{ID: 20, AuthorID: 2, Body: "world", CreatedAt: created},
		},
		Comments: []model.Comment{
			{ID: 100, PostID: 10, AuthorID: 2, Body: "hi", CreatedAt: created},
		},
		Likes: []model.Like{
			{ID: 1, UserID: 2, TargetKind: model.LikePost, TargetID: 10, CreatedAt: created},
			{ID: 2, UserID: 3, TargetKind: model.LikePost, TargetID: 10, CreatedAt: created},
			{ID: 3, UserID: 1, TargetKind: model.LikeComment, TargetID: 10, CreatedAt: created},
		},
		Mentions: []model.Mention{{ID: 1, PostID: 10, UserID: 3}},
		Hashtags: []model.Hashtag{{ID: 1, Name: "go"}, {ID: 2, Name: "batch"}},
		PostHashtags: []model.PostHashtag{
			{PostID: 10, HashtagID: 2},
			{PostID: 20, HashtagID: 2},
			{PostID: 20, HashtagID: 1},
		},
		Partners:  []model.Partner{{ID: 1, Name: "Acme", CreatedAt: created}},
		Vendors:   []model.Vendor{{ID: 1, Name: "Shop", CreatedAt: created}},
		Campaigns: []model.Campaign{{ID: 1, PartnerID: 1, VendorID: 1, Name: "spring", Status: model.CampaignActive, StartsAt: created, EndsAt: created}},
		Banners: []model.Banner{
			{ID: 1, CampaignID: 1, ImageURL: "a.png", CreatedAt: created},
			{ID: 2, CampaignID: 1, ImageURL: "b.png", CreatedAt: created},
		},
		Interactions: []model.Interaction{
			{ID: 1, BannerID: 1, Kind: model.InteractionView, CreatedAt: created},
			{ID: 2, BannerID: 1, Kind: model.InteractionView, CreatedAt: created},
			{ID: 3, BannerID: 1, Kind: model.InteractionClick, CreatedAt: created},
		},
	}
}

func openSQLite(t *testing.T) *SQL {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: "file::memory:", Migrate: true}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Insert(context.Background(), fixture()))
	return s
}

func stores(t *testing.T) map[string]EntityStore {
	return map[string]EntityStore{
		"memory": NewMemory(fixture()),
		"sqlite": openSQLite(t),
	}
}

func userIDs(users []model.User) []int64 {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestFindOmitsMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			users, err := s.FindUsers(ctx, []int64{3, 99, 1})
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 3}, userIDs(users))

			users, err = s.FindUsers(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, users)

			posts, err := s.FindPosts(ctx, []int64{10})
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, int64(1), posts[0].AuthorID)
			assert.Equal(t, "hello", posts[0].Body)
			assert.True(t, created.Equal(posts[0].CreatedAt))

			campaigns, err := s.FindCampaigns(ctx, []int64{1})
			require.NoError(t, err)
			require.Len(t, campaigns, 1)
			assert.Equal(t, model.CampaignActive, campaigns[0].Status)
		})
	}
}

func TestCounts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			likes, err := s.CountLikes(ctx, model.LikePost, []int64{10, 20})
			require.NoError(t, err)
			assert.Equal(t, map[int64]int64{10: 2}, likes)

			interactions, err := s.CountInteractions(ctx, []int64{1, 2})
			require.NoError(t, err)
			assert.Equal(t, map[int64]model.InteractionCounts{1: {BannerID: 1, Views: 2, Clicks: 1}}, interactions)

			empty, err := s.CountInteractions(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestPairs(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// 2 -> 3 connects users of different keys and is not returned
			edges, err := s.FindEdges(ctx, []model.Key{{EntityID: 2, RequesterID: 1}, {EntityID: 1, RequesterID: 3}})
			require.NoError(t, err)
			ids := make([]int64, len(edges))
			for i, e := range edges {
				ids[i] = e.ID
			}
			assert.ElementsMatch(t, []int64{1, 2, 3}, ids)

			likes, err := s.FindLikesBy(ctx, model.LikePost, []model.Key{{EntityID: 10, RequesterID: 2}, {EntityID: 20, RequesterID: 3}})
			require.NoError(t, err)
			require.Len(t, likes, 1)
			assert.Equal(t, int64(2), likes[0].UserID)
		})
	}
}

func TestLinks(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			links, err := s.FindPostHashtags(ctx, []int64{20})
			require.NoError(t, err)
			assert.Len(t, links, 2)

			mentions, err := s.FindMentions(ctx, []int64{10, 20})
			require.NoError(t, err)
			assert.Equal(t, []model.Mention{{ID: 1, PostID: 10, UserID: 3}}, mentions)

			trending, err := s.TrendingHashtags(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, []model.Hashtag{{ID: 2, Name: "batch"}}, trending)
		})
	}
}

func TestMemoryCalls(t *testing.T) {
	s := NewMemory(fixture())
	ctx := context.Background()

	_, _ = s.FindUsers(ctx, []int64{1, 2})
	_, _ = s.FindUsers(ctx, []int64{3})
	assert.Equal(t, 2, s.Calls("FindUsers"))
	assert.Equal(t, [][]int64{{1, 2}, {3}}, s.Requests("FindUsers"))
	assert.Equal(t, 0, s.Calls("FindPosts"))

	failure := errors.New("connection reset")
	s.Fail("FindPosts", failure)
	_, err := s.FindPosts(ctx, []int64{10})
	assert.ErrorIs(t, err, failure)

	s.Fail("FindPosts", nil)
	posts, err := s.FindPosts(ctx, []int64{10})
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestReadSeed(t *testing.T) {
	seed, err := ReadSeed(strings.NewReader(`
users:
  - id: 1
    username: ada
    displayName: Ada
    createdAt: 2024-05-01T12:00:00Z
postHashtags:
  - postId: 10
    hashtagId: 2
`))
	require.NoError(t, err)
	require.Len(t, seed.Users, 1)
	assert.Equal(t, "Ada", seed.Users[0].DisplayName)
	assert.True(t, created.Equal(seed.Users[0].CreatedAt))
	assert.Equal(t, []model.PostHashtag{{PostID: 10, HashtagID: 2}}, seed.PostHashtags)

	_, err = ReadSeed(strings.NewReader("unknown: 1\n"))
	assert.Error(t, err)
}
