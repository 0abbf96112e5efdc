package resolver

import (
	"context"
	"fmt"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/model"
	"golang.org/x/sync/errgroup"
)

// start sends keys to a sibling loader right away and returns a function
// waiting for the found values
func start[TKey comparable, TValue any](b *batchload.Batcher[TKey, TValue], keys []TKey) func() (map[TKey]TValue, error) {
	thunk := b.LoadAllThunk(keys)
	b.Dispatch()
	return func() (map[TKey]TValue, error) {
		values, errs := thunk()
		return collect(keys, values, errs)
	}
}

// ids returns the distinct ids referenced by items
func ids[T any](items []T, fn func(T) int64) []int64 {
	return batchload.Distinct(items, func(item T) (int64, bool) { return fn(item), true })
}

func (l *Loaders) posts(ctx context.Context, keys []int64) ([]model.PostView, []error) {
	posts, err := l.store.FindPosts(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.PostView](len(keys), err)
	}
	postIDs := ids(posts, func(p model.Post) int64 { return p.ID })

	var mentions []model.Mention
	var links []model.PostHashtag
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mentions, err = l.store.FindMentions(gctx, postIDs)
		return err
	})
	g.Go(func() (err error) {
		links, err = l.store.FindPostHashtags(gctx, postIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return batchload.FailAll[model.PostView](len(keys), fmt.Errorf("load post relations: %w", err))
	}

	// authors and mentioned users are fetched together
	userIDs := ids(posts, func(p model.Post) int64 { return p.AuthorID })
	userIDs = batchload.Distinct(append(userIDs, ids(mentions, func(m model.Mention) int64 { return m.UserID })...),
		func(id int64) (int64, bool) { return id, true })
	waitUsers := start(l.Users, userIDs)
	waitHashtags := start(l.Hashtags, ids(links, func(ph model.PostHashtag) int64 { return ph.HashtagID }))
	waitLikes := start(l.PostLikeCounts, postIDs)

	users, err := waitUsers()
	if err != nil {
		return batchload.FailAll[model.PostView](len(keys), fmt.Errorf("load users: %w", err))
	}
	hashtags, err := waitHashtags()
	if err != nil {
		return batchload.FailAll[model.PostView](len(keys), fmt.Errorf("load hashtags: %w", err))
	}
	likes, err := waitLikes()
	if err != nil {
		return batchload.FailAll[model.PostView](len(keys), fmt.Errorf("load likes: %w", err))
	}

	index := batchload.IndexBy(posts, func(p model.Post) int64 { return p.ID })
	mentionsByPost := batchload.GroupBy(mentions, func(m model.Mention) int64 { return m.PostID })
	linksByPost := batchload.GroupBy(links, func(ph model.PostHashtag) int64 { return ph.PostID })

	values := make([]model.PostView, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		post, ok := index[k]
		if !ok {
			errs[i] = batchload.NewErrNotFound(k)
			continue
		}
		author, ok := users[post.AuthorID]
		if !ok {
			errs[i] = l.dangling("post", post.ID, "author", post.AuthorID)
			continue
		}
		view := model.PostView{
			Post:      post,
			Author:    author,
			LikeCount: likes[post.ID],
			Hashtags:  []model.Hashtag{},
			Mentions:  []model.User{},
		}
		for _, link := range linksByPost[post.ID] {
			if h, ok := hashtags[link.HashtagID]; ok {
				view.Hashtags = append(view.Hashtags, h)
			}
		}
		for _, mention := range mentionsByPost[post.ID] {
			if u, ok := users[mention.UserID]; ok {
				view.Mentions = append(view.Mentions, u)
			}
		}
		values[i] = view
	}
	return values, errs
}

func (l *Loaders) comments(ctx context.Context, keys []int64) ([]model.CommentView, []error) {
	comments, err := l.store.FindComments(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.CommentView](len(keys), err)
	}
	waitPosts := start(l.PostRecords, ids(comments, func(c model.Comment) int64 { return c.PostID }))
	waitUsers := start(l.Users, ids(comments, func(c model.Comment) int64 { return c.AuthorID }))
	waitLikes := start(l.CommentLikeCounts, ids(comments, func(c model.Comment) int64 { return c.ID }))

	posts, err := waitPosts()
	if err != nil {
		return batchload.FailAll[model.CommentView](len(keys), fmt.Errorf("load posts: %w", err))
	}
	users, err := waitUsers()
	if err != nil {
		return batchload.FailAll[model.CommentView](len(keys), fmt.Errorf("load users: %w", err))
	}
	likes, err := waitLikes()
	if err != nil {
		return batchload.FailAll[model.CommentView](len(keys), fmt.Errorf("load likes: %w", err))
	}

	index := batchload.IndexBy(comments, func(c model.Comment) int64 { return c.ID })
	values := make([]model.CommentView, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		comment, ok := index[k]
		if !ok {
			errs[i] = batchload.NewErrNotFound(k)
			continue
		}
		post, ok := posts[comment.PostID]
		if !ok {
			errs[i] = l.dangling("comment", comment.ID, "post", comment.PostID)
			continue
		}
		author, ok := users[comment.AuthorID]
		if !ok {
			errs[i] = l.dangling("comment", comment.ID, "author", comment.AuthorID)
			continue
		}
		values[i] = model.CommentView{Comment: comment, Post: post, Author: author, LikeCount: likes[comment.ID]}
	}
	return values, errs
}

func (l *Loaders) replies(ctx context.Context, keys []int64) ([]model.ReplyView, []error) {
	replies, err := l.store.FindReplies(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.ReplyView](len(keys), err)
	}
	waitComments := start(l.CommentRecords, ids(replies, func(r model.Reply) int64 { return r.CommentID }))
	waitUsers := start(l.Users, ids(replies, func(r model.Reply) int64 { return r.AuthorID }))
	waitLikes := start(l.ReplyLikeCounts, ids(replies, func(r model.Reply) int64 { return r.ID }))

	comments, err := waitComments()
	if err != nil {
		return batchload.FailAll[model.ReplyView](len(keys), fmt.Errorf("load comments: %w", err))
	}
	users, err := waitUsers()
	if err != nil {
		return batchload.FailAll[model.ReplyView](len(keys), fmt.Errorf("load users: %w", err))
	}
	likes, err := waitLikes()
	if err != nil {
		return batchload.FailAll[model.ReplyView](len(keys), fmt.Errorf("load likes: %w", err))
	}

	index := batchload.IndexBy(replies, func(r model.Reply) int64 { return r.ID })
	values := make([]model.ReplyView, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		reply, ok := index[k]
		if !ok {
			errs[i] = batchload.NewErrNotFound(k)
			continue
		}
		comment, ok := comments[reply.CommentID]
		if !ok {
			errs[i] = l.dangling("reply", reply.ID, "comment", reply.CommentID)
			continue
		}
		author, ok := users[reply.AuthorID]
		if !ok {
			errs[i] = l.dangling("reply", reply.ID, "author", reply.AuthorID)
			continue
		}
		values[i] = model.ReplyView{Reply: reply, Comment: comment, Author: author, LikeCount: likes[reply.ID]}
	}
	return values, errs
}

func (l *Loaders) messages(ctx context.Context, keys []int64) ([]model.MessageView, []error) {
	messages, err := l.store.FindMessages(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.MessageView](len(keys), err)
	}
	userIDs := make([]int64, 0, 2*len(messages))
	for _, m := range messages {
		userIDs = append(userIDs, m.SenderID, m.RecipientID)
	}
	userIDs = batchload.Distinct(userIDs, func(id int64) (int64, bool) { return id, true })

	users, err := start(l.Users, userIDs)()
	if err != nil {
		return batchload.FailAll[model.MessageView](len(keys), fmt.Errorf("load users: %w", err))
	}

	index := batchload.IndexBy(messages, func(m model.Message) int64 { return m.ID })
	values := make([]model.MessageView, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		message, ok := index[k]
		if !ok {
			errs[i] = batchload.NewErrNotFound(k)
			continue
		}
		sender, ok := users[message.SenderID]
		if !ok {
			errs[i] = l.dangling("message", message.ID, "sender", message.SenderID)
			continue
		}
		recipient, ok := users[message.RecipientID]
		if !ok {
			errs[i] = l.dangling("message", message.ID, "recipient", message.RecipientID)
			continue
		}
		values[i] = model.MessageView{Message: message, Sender: sender, Recipient: recipient}
	}
	return values, errs
}

func (l *Loaders) campaigns(ctx context.Context, keys []int64) ([]model.CampaignView, []error) {
	campaigns, err := l.store.FindCampaigns(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.CampaignView](len(keys), err)
	}
	waitPartners := start(l.Partners, ids(campaigns, func(c model.Campaign) int64 { return c.PartnerID }))
	waitVendors := start(l.Vendors, ids(campaigns, func(c model.Campaign) int64 { return c.VendorID }))

	partners, err := waitPartners()
	if err != nil {
		return batchload.FailAll[model.CampaignView](len(keys), fmt.Errorf("load partners: %w", err))
	}
	vendors, err := waitVendors()
	if err != nil {
		return batchload.FailAll[model.CampaignView](len(keys), fmt.Errorf("load vendors: %w", err))
	}

	index := batchload.IndexBy(campaigns, func(c model.Campaign) int64 { return c.ID })
	values := make([]model.CampaignView, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		campaign, ok := index[k]
		if !ok {
			errs[i] = batchload.NewErrNotFound(k)
			continue
		}
		partner, ok := partners[campaign.PartnerID]
		if !ok {
			errs[i] = l.dangling("campaign", campaign.ID, "partner", campaign.PartnerID)
			continue
		}
		vendor, ok := vendors[campaign.VendorID]
		if !ok {
			errs[i] = l.dangling("campaign", campaign.ID, "vendor", campaign.VendorID)
			continue
		}
		values[i] = model.CampaignView{Campaign: campaign, Partner: partner, Vendor: vendor}
	}
	return values, errs
}

func (l *Loaders) buyers(ctx context.Context, keys []int64) ([]model.BuyerView, []error) {
	buyers, err := l.store.FindBuyers(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.BuyerView](len(keys), err)
	}
	users, err := start(l.Users, ids(buyers, func(b model.Buyer) int64 { return b.UserID }))()
	if err != nil {
		return batchload.FailAll[model.BuyerView](len(keys), fmt.Errorf("load users: %w", err))
	}

	index := batchload.IndexBy(buyers, func(b model.Buyer) int64 { return b.ID })
	values := make([]model.BuyerView, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		buyer, ok := index[k]
		if !ok {
			errs[i] = batchload.NewErrNotFound(k)
			continue
		}
		user, ok := users[buyer.UserID]
		if !ok {
			errs[i] = l.dangling("buyer", buyer.ID, "user", buyer.UserID)
			continue
		}
		values[i] = model.BuyerView{Buyer: buyer, User: user}
	}
	return values, errs
}

func (l *Loaders) banners(ctx context.Context, keys []int64) ([]model.BannerView, []error) {
	banners, err := l.store.FindBanners(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.BannerView](len(keys), err)
	}
	waitCampaigns := start(l.CampaignRecords, ids(banners, func(b model.Banner) int64 { return b.CampaignID }))

	counts, err := l.store.CountInteractions(ctx, ids(banners, func(b model.Banner) int64 { return b.ID }))
	if err != nil {
		return batchload.FailAll[model.BannerView](len(keys), fmt.Errorf("count interactions: %w", err))
	}
	campaigns, err := waitCampaigns()
	if err != nil {
		return batchload.FailAll[model.BannerView](len(keys), fmt.Errorf("load campaigns: %w", err))
	}

	index := batchload.IndexBy(banners, func(b model.Banner) int64 { return b.ID })
	values := make([]model.BannerView, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		banner, ok := index[k]
		if !ok {
			errs[i] = batchload.NewErrNotFound(k)
			continue
		}
		campaign, ok := campaigns[banner.CampaignID]
		if !ok {
			errs[i] = l.dangling("banner", banner.ID, "campaign", banner.CampaignID)
			continue
		}
		c := counts[banner.ID]
		values[i] = model.BannerView{
			Banner:   banner,
			Campaign: campaign,
			Views:    c.Views,
			Clicks:   c.Clicks,
			Score:    model.Score(c.Clicks, c.Views),
		}
	}
	return values, errs
}

// relationships always resolve, users without edges are unrelated
func (l *Loaders) relationships(ctx context.Context, keys []model.Key) ([]model.Relationship, []error) {
	edges, err := l.store.FindEdges(ctx, keys)
	if err != nil {
		return batchload.FailAll[model.Relationship](len(keys), err)
	}
	type directed struct {
		from, to int64
		kind     model.EdgeKind
	}
	present := make(map[directed]struct{}, len(edges))
	for _, e := range edges {
		present[directed{e.FromID, e.ToID, e.Kind}] = struct{}{}
	}
	has := func(from, to int64, kind model.EdgeKind) bool {
		_, ok := present[directed{from, to, kind}]
		return ok
	}

	values := make([]model.Relationship, len(keys))
	for i, k := range keys {
		r := model.Relationship{UserID: k.EntityID, RequesterID: k.RequesterID}
		if k.EntityID != k.RequesterID {
			r.Following = has(k.RequesterID, k.EntityID, model.EdgeFollow)
			r.FollowedBy = has(k.EntityID, k.RequesterID, model.EdgeFollow)
			r.Blocked = has(k.RequesterID, k.EntityID, model.EdgeBlock)
			r.BlockedBy = has(k.EntityID, k.RequesterID, model.EdgeBlock)
			r.Friends = r.Following && r.FollowedBy
		}
		values[i] = r
	}
	return values, nil
}
