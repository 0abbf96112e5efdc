package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/model"
	_ "github.com/lib/pq" // postgres driver
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // sqlite driver
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// Config of the SQL entity store
type Config struct {
	// Driver is either postgres or sqlite
	Driver string `mapstructure:"driver"`

	// DSN is handed to the driver as is
	DSN string `mapstructure:"dsn"`

	// MaxOpenConns limits the connection pool, 0 = driver default.
	// In-memory sqlite databases always use a single connection.
	MaxOpenConns int `mapstructure:"maxOpenConns"`

	// Migrate creates missing tables when the store is opened
	Migrate bool `mapstructure:"migrate"`
}

// SQL is the entity store backed by a relational database. Every lookup is a
// single statement with an IN list of the requested ids.
type SQL struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger
}

// Open connects to the configured database
func Open(ctx context.Context, config Config, logger zerolog.Logger) (*SQL, error) {
	switch config.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, config.Driver)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Driver, err)
	}
	if config.Driver == DriverSQLite && strings.Contains(config.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", config.Driver, err)
	}

	s := &SQL{
		db:     db,
		driver: config.Driver,
		logger: logger.With().Str("component", "EntityStore").Str("driver", config.Driver).Logger(),
	}
	if config.Migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQL) Close() error { return s.db.Close() }

// Ping checks that the database is reachable
func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) FindUsers(ctx context.Context, ids []int64) ([]model.User, error) {
	return selectByIDs(ctx, s, "users", "id, username, display_name, avatar_url, created_at", "id", ids,
		func(r scanner) (u model.User, err error) {
			err = r.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.CreatedAt)
			return u, err
		})
}

func (s *SQL) FindPosts(ctx context.Context, ids []int64) ([]model.Post, error) {
	return selectByIDs(ctx, s, "posts", "id, author_id, body, created_at", "id", ids,
		func(r scanner) (p model.Post, err error) {
			err = r.Scan(&p.ID, &p.AuthorID, &p.Body, &p.CreatedAt)
			return p, err
		})
}

func (s *SQL) FindComments(ctx context.Context, ids []int64) ([]model.Comment, error) {
	return selectByIDs(ctx, s, "comments", "id, post_id, author_id, body, created_at", "id", ids,
		func(r scanner) (c model.Comment, err error) {
			err = r.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt)
			return c, err
		})
}

func (s *SQL) FindReplies(ctx context.Context, ids []int64) ([]model.Reply, error) {
	return selectByIDs(ctx, s, "replies", "id, comment_id, author_id, body, created_at", "id", ids,
		func(r scanner) (c model.Reply, err error) {
			err = r.Scan(&c.ID, &c.CommentID, &c.AuthorID, &c.Body, &c.CreatedAt)
			return c, err
		})
}

func (s *SQL) FindMessages(ctx context.Context, ids []int64) ([]model.Message, error) {
	return selectByIDs(ctx, s, "messages", "id, sender_id, recipient_id, body, read_at, created_at", "id", ids,
		func(r scanner) (m model.Message, err error) {
			var readAt sql.NullTime
			err = r.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &readAt, &m.CreatedAt)
			if readAt.Valid {
				m.ReadAt = &readAt.Time
			}
			return m, err
		})
}

func (s *SQL) FindHashtags(ctx context.Context, ids []int64) ([]model.Hashtag, error) {
	return selectByIDs(ctx, s, "hashtags", "id, name", "id", ids,
		func(r scanner) (h model.Hashtag, err error) {
			err = r.Scan(&h.ID, &h.Name)
			return h, err
		})
}

func (s *SQL) FindPartners(ctx context.Context, ids []int64) ([]model.Partner, error) {
	return selectByIDs(ctx, s, "partners", "id, name, website, created_at", "id", ids,
		func(r scanner) (p model.Partner, err error) {
			err = r.Scan(&p.ID, &p.Name, &p.Website, &p.CreatedAt)
			return p, err
		})
}

func (s *SQL) FindVendors(ctx context.Context, ids []int64) ([]model.Vendor, error) {
	return selectByIDs(ctx, s, "vendors", "id, name, email, created_at", "id", ids,
		func(r scanner) (v model.Vendor, err error) {
			err = r.Scan(&v.ID, &v.Name, &v.Email, &v.CreatedAt)
			return v, err
		})
}

func (s *SQL) FindBuyers(ctx context.Context, ids []int64) ([]model.Buyer, error) {
	return selectByIDs(ctx, s, "buyers", "id, user_id, stripe_customer_id, created_at", "id", ids,
		func(r scanner) (b model.Buyer, err error) {
			err = r.Scan(&b.ID, &b.UserID, &b.StripeCustomerID, &b.CreatedAt)
			return b, err
		})
}

func (s *SQL) FindCampaigns(ctx context.Context, ids []int64) ([]model.Campaign, error) {
	return selectByIDs(ctx, s, "campaigns", "id, partner_id, vendor_id, name, status, budget_cents, starts_at, ends_at", "id", ids,
		func(r scanner) (c model.Campaign, err error) {
			err = r.Scan(&c.ID, &c.PartnerID, &c.VendorID, &c.Name, &c.Status, &c.BudgetCents, &c.StartsAt, &c.EndsAt)
			return c, err
		})
}

func (s *SQL) FindBanners(ctx context.Context, ids []int64) ([]model.Banner, error) {
	return selectByIDs(ctx, s, "banners", "id, campaign_id, image_url, target_url, created_at", "id", ids,
		func(r scanner) (b model.Banner, err error) {
			err = r.Scan(&b.ID, &b.CampaignID, &b.ImageURL, &b.TargetURL, &b.CreatedAt)
			return b, err
		})
}

func (s *SQL) FindPostHashtags(ctx context.Context, postIDs []int64) ([]model.PostHashtag, error) {
	return selectByIDs(ctx, s, "post_hashtags", "post_id, hashtag_id", "post_id", postIDs,
		func(r scanner) (ph model.PostHashtag, err error) {
			err = r.Scan(&ph.PostID, &ph.HashtagID)
			return ph, err
		})
}

func (s *SQL) FindMentions(ctx context.Context, postIDs []int64) ([]model.Mention, error) {
	return selectByIDs(ctx, s, "mentions", "id, post_id, user_id", "post_id", postIDs,
		func(r scanner) (m model.Mention, err error) {
			err = r.Scan(&m.ID, &m.PostID, &m.UserID)
			return m, err
		})
}

func (s *SQL) CountLikes(ctx context.Context, target model.LikeTarget, ids []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	args := []any{string(target)}
	in, args := s.in(ids, args)
	query := "SELECT target_id, COUNT(*) FROM likes WHERE target_kind = " + s.placeholder(1) +
		" AND target_id IN (" + in + ") GROUP BY target_id"

	rows, err := queryRows(ctx, s, query, args, func(r scanner) (c [2]int64, err error) {
		err = r.Scan(&c[0], &c[1])
		return c, err
	})
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		counts[c[0]] = c[1]
	}
	return counts, nil
}

// FindLikesBy narrows the query by both key sides and keeps the exact pairs
func (s *SQL) FindLikesBy(ctx context.Context, target model.LikeTarget, keys []model.Key) ([]model.Like, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	entities, requesters := keySides(keys)
	args := []any{string(target)}
	inEntities, args := s.in(entities, args)
	inRequesters, args := s.in(requesters, args)
	query := "SELECT id, user_id, target_kind, target_id, created_at FROM likes WHERE target_kind = " + s.placeholder(1) +
		" AND target_id IN (" + inEntities + ") AND user_id IN (" + inRequesters + ")"

	likes, err := queryRows(ctx, s, query, args, func(r scanner) (l model.Like, err error) {
		err = r.Scan(&l.ID, &l.UserID, &l.TargetKind, &l.TargetID, &l.CreatedAt)
		return l, err
	})
	if err != nil {
		return nil, err
	}

	wanted := make(map[model.Key]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	result := likes[:0]
	for _, l := range likes {
		if _, ok := wanted[model.Key{EntityID: l.TargetID, RequesterID: l.UserID}]; ok {
			result = append(result, l)
		}
	}
	return result, nil
}

// FindEdges narrows the query to edges among the users of the keys and keeps
// those connecting a key pair
func (s *SQL) FindEdges(ctx context.Context, keys []model.Key) ([]model.Edge, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	entities, requesters := keySides(keys)
	users := batchload.Distinct(append(entities, requesters...), func(id int64) (int64, bool) { return id, true })
	inFrom, args := s.in(users, nil)
	inTo, args := s.in(users, args)
	query := "SELECT id, from_id, to_id, kind, created_at FROM edges WHERE from_id IN (" + inFrom + ") AND to_id IN (" + inTo + ")"

	edges, err := queryRows(ctx, s, query, args, func(r scanner) (e model.Edge, err error) {
		err = r.Scan(&e.ID, &e.FromID, &e.ToID, &e.Kind, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, err
	}

	pairs := keyPairs(keys)
	result := edges[:0]
	for _, e := range edges {
		if _, ok := pairs[model.Key{EntityID: e.FromID, RequesterID: e.ToID}]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *SQL) CountInteractions(ctx context.Context, bannerIDs []int64) (map[int64]model.InteractionCounts, error) {
	counts := make(map[int64]model.InteractionCounts, len(bannerIDs))
	if len(bannerIDs) == 0 {
		return counts, nil
	}
	args := []any{string(model.InteractionView), string(model.InteractionClick)}
	in, args := s.in(bannerIDs, args)
	query := "SELECT banner_id," +
		" SUM(CASE WHEN kind = " + s.placeholder(1) + " THEN 1 ELSE 0 END)," +
		" SUM(CASE WHEN kind = " + s.placeholder(2) + " THEN 1 ELSE 0 END)" +
		" FROM interactions WHERE banner_id IN (" + in + ") GROUP BY banner_id"

	rows, err := queryRows(ctx, s, query, args, func(r scanner) (c model.InteractionCounts, err error) {
		err = r.Scan(&c.BannerID, &c.Views, &c.Clicks)
		return c, err
	})
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		counts[c.BannerID] = c
	}
	return counts, nil
}

func (s *SQL) TrendingHashtags(ctx context.Context, limit int) ([]model.Hashtag, error) {
	if limit <= 0 {
		limit = 10
	}
	query := "SELECT h.id, h.name FROM hashtags h JOIN post_hashtags ph ON ph.hashtag_id = h.id" +
		" GROUP BY h.id, h.name ORDER BY COUNT(*) DESC, h.id ASC LIMIT " + s.placeholder(1)
	return queryRows(ctx, s, query, []any{limit}, func(r scanner) (h model.Hashtag, err error) {
		err = r.Scan(&h.ID, &h.Name)
		return h, err
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func selectByIDs[T any](ctx context.Context, s *SQL, table, columns, column string, ids []int64, scan func(scanner) (T, error)) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	in, args := s.in(ids, nil)
	query := "SELECT " + columns + " FROM " + table + " WHERE " + column + " IN (" + in + ")"
	return queryRows(ctx, s, query, args, scan)
}

func queryRows[T any](ctx context.Context, s *SQL, query string, args []any, scan func(scanner) (T, error)) ([]T, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("Query failed.")
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.logger.Debug().
		Str("query", query).
		Int("args", len(args)).
		Int("rows", len(result)).
		Dur("took", time.Since(start)).
		Msg("Query done.")
	return result, nil
}

// in renders one placeholder per id, continuing the numbering of args
func (s *SQL) in(ids []int64, args []any) (string, []any) {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, id)
		b.WriteString(s.placeholder(len(args)))
	}
	return b.String(), args
}

func (s *SQL) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
