package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/flowscan/batchload/internal/model"
)

// schema is portable between postgres and sqlite
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		id BIGINT PRIMARY KEY,
		from_id BIGINT NOT NULL,
		to_id BIGINT NOT NULL,
		kind VARCHAR(16) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_pair ON edges (from_id, to_id)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id BIGINT PRIMARY KEY,
		author_id BIGINT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGINT PRIMARY KEY,
		post_id BIGINT NOT NULL,
		author_id BIGINT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS replies (
		id BIGINT PRIMARY KEY,
		comment_id BIGINT NOT NULL,
		author_id BIGINT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		target_kind VARCHAR(16) NOT NULL,
		target_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_target ON likes (target_kind, target_id)`,
	`CREATE TABLE IF NOT EXISTS mentions (
		id BIGINT PRIMARY KEY,
		post_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mentions_post ON mentions (post_id)`,
	`CREATE TABLE IF NOT EXISTS hashtags (
		id BIGINT PRIMARY KEY,
		name VARCHAR(128) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS post_hashtags (
		post_id BIGINT NOT NULL,
		hashtag_id BIGINT NOT NULL,
		PRIMARY KEY (post_id, hashtag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGINT PRIMARY KEY,
		sender_id BIGINT NOT NULL,
		recipient_id BIGINT NOT NULL,
		body TEXT NOT NULL,
		read_at TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS partners (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		website TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS buyers (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		stripe_customer_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id BIGINT PRIMARY KEY,
		partner_id BIGINT NOT NULL,
		vendor_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		budget_cents BIGINT NOT NULL DEFAULT 0,
		starts_at TIMESTAMP NOT NULL,
		ends_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS banners (
		id BIGINT PRIMARY KEY,
		campaign_id BIGINT NOT NULL,
		image_url TEXT NOT NULL,
		target_url TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id BIGINT PRIMARY KEY,
		banner_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		kind VARCHAR(16) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_banner ON interactions (banner_id)`,
}

// Migrate creates the missing tables and indexes
func (s *SQL) Migrate(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.logger.Info().Int("statements", len(schema)).Msg("Schema migrated.")
	return nil
}

// Insert writes the seed in one transaction. It is meant for fixtures, the
// lookups never write.
func (s *SQL) Insert(ctx context.Context, seed Seed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := func(table string, columns []string, rows [][]any) error {
		if len(rows) == 0 {
			return nil
		}
		marks := make([]string, len(columns))
		for i := range marks {
			marks[i] = s.placeholder(i + 1)
		}
		statement := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, statement, row...); err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
		}
		return nil
	}

	steps := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"users", []string{"id", "username", "display_name", "avatar_url", "created_at"}, rowsOf(seed.Users, func(v model.User) []any {
			return []any{v.ID, v.Username, v.DisplayName, v.AvatarURL, timestamp(v.CreatedAt)}
		})},
		{"edges", []string{"id", "from_id", "to_id", "kind", "created_at"}, rowsOf(seed.Edges, func(v model.Edge) []any {
			return []any{v.ID, v.FromID, v.ToID, string(v.Kind), timestamp(v.CreatedAt)}
		})},
		{"posts", []string{"id", "author_id", "body", "created_at"}, rowsOf(seed.Posts, func(v model.Post) []any {
			return []any{v.ID, v.AuthorID, v.Body, timestamp(v.CreatedAt)}
		})},
		{"comments", []string{"id", "post_id", "author_id", "body", "created_at"}, rowsOf(seed.Comments, func(v model.Comment) []any {
			return []any{v.ID, v.PostID, v.AuthorID, v.Body, timestamp(v.CreatedAt)}
		})},
		{"replies", []string{"id", "comment_id", "author_id", "body", "created_at"}, rowsOf(seed.Replies, func(v model.Reply) []any {
			return []any{v.ID, v.CommentID, v.AuthorID, v.Body, timestamp(v.CreatedAt)}
		})},
		{"likes", []string{"id", "user_id", "target_kind", "target_id", "created_at"}, rowsOf(seed.Likes, func(v model.Like) []any {
			return []any{v.ID, v.UserID, string(v.TargetKind), v.TargetID, timestamp(v.CreatedAt)}
		})},
		{"mentions", []string{"id", "post_id", "user_id"}, rowsOf(seed.Mentions, func(v model.Mention) []any {
			return []any{v.ID, v.PostID, v.UserID}
		})},
		{"hashtags", []string{"id", "name"}, rowsOf(seed.Hashtags, func(v model.Hashtag) []any {
			return []any{v.ID, v.Name}
		})},
		{"post_hashtags", []string{"post_id", "hashtag_id"}, rowsOf(seed.PostHashtags, func(v model.PostHashtag) []any {
			return []any{v.PostID, v.HashtagID}
		})},
		{"messages", []string{"id", "sender_id", "recipient_id", "body", "read_at", "created_at"}, rowsOf(seed.Messages, func(v model.Message) []any {
			readAt := sql.NullTime{}
			if v.ReadAt != nil {
				readAt = sql.NullTime{Time: timestamp(*v.ReadAt), Valid: true}
			}
			return []any{v.ID, v.SenderID, v.RecipientID, v.Body, readAt, timestamp(v.CreatedAt)}
		})},
		{"partners", []string{"id", "name", "website", "created_at"}, rowsOf(seed.Partners, func(v model.Partner) []any {
			return []any{v.ID, v.Name, v.Website, timestamp(v.CreatedAt)}
		})},
		{"vendors", []string{"id", "name", "email", "created_at"}, rowsOf(seed.Vendors, func(v model.Vendor) []any {
			return []any{v.ID, v.Name, v.Email, timestamp(v.CreatedAt)}
		})},
		{"buyers", []string{"id", "user_id", "stripe_customer_id", "created_at"}, rowsOf(seed.Buyers, func(v model.Buyer) []any {
			return []any{v.ID, v.UserID, v.StripeCustomerID, timestamp(v.CreatedAt)}
		})},
		{"campaigns", []string{"id", "partner_id", "vendor_id", "name", "status", "budget_cents", "starts_at", "ends_at"}, rowsOf(seed.Campaigns, func(v model.Campaign) []any {
			return []any{v.ID, v.PartnerID, v.VendorID, v.Name, string(v.Status), v.BudgetCents, timestamp(v.StartsAt), timestamp(v.EndsAt)}
		})},
		{"banners", []string{"id", "campaign_id", "image_url", "target_url", "created_at"}, rowsOf(seed.Banners, func(v model.Banner) []any {
			return []any{v.ID, v.CampaignID, v.ImageURL, v.TargetURL, timestamp(v.CreatedAt)}
		})},
		{"interactions", []string{"id", "banner_id", "user_id", "kind", "created_at"}, rowsOf(seed.Interactions, func(v model.Interaction) []any {
			return []any{v.ID, v.BannerID, v.UserID, string(v.Kind), timestamp(v.CreatedAt)}
		})},
	}
	for _, step := range steps {
		if err := insert(step.table, step.columns, step.rows); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info().Int("tables", len(steps)).Msg("Seed inserted.")
	return nil
}

func rowsOf[T any](items []T, row func(T) []any) [][]any {
	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = row(item)
	}
	return rows
}

// timestamp drops the monotonic clock and normalizes to UTC, zero times become the epoch
func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC().Round(0)
}
