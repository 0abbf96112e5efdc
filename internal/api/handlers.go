package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/model"
	"github.com/flowscan/batchload/internal/resolver"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	maxIDs        = 100
	trendingLimit = 10
)

var errNoLoaders = errors.New("request has no loaders")

// item is the outcome of one requested id, either a value or the reason it is missing
type item[T any] struct {
	ID    int64  `json:"id"`
	Value *T     `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

type feedEntry struct {
	model.PostView
	Liked bool `json:"liked"`
}

// handleBatch serves a list of ids with the loader picked from the request loaders
func handleBatch[T any](pick func(l *resolver.Loaders) *batchload.Batcher[int64, T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, ok := queryIDs(c, "ids")
		if !ok {
			return
		}
		loaders, ok := requestLoaders(c)
		if !ok {
			return
		}
		values, errs := pick(loaders).LoadAll(ids)
		respond(c, ids, values, errs)
	}
}

// handleBanners returns the found banners ranked by score
func (s *Server) handleBanners(c *gin.Context) {
	ids, ok := queryIDs(c, "ids")
	if !ok {
		return
	}
	loaders, ok := requestLoaders(c)
	if !ok {
		return
	}

	values, errs := loaders.Banners.LoadAll(ids)
	ranked := make([]model.BannerView, 0, len(ids))
	missing := make([]int64, 0)
	for i, err := range errs {
		switch {
		case err == nil:
			ranked = append(ranked, values[i])
		case batchload.IsNotFound(err):
			missing = append(missing, ids[i])
		default:
			fail(c, err)
			return
		}
	}
	model.RankBanners(ranked)
	c.JSON(http.StatusOK, gin.H{"data": ranked, "missing": missing})
}

func (s *Server) handleRelationship(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	requesterID, err := strconv.ParseInt(c.Query("requester"), 10, 64)
	if err != nil || requesterID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requester parameter required"})
		return
	}
	loaders, ok := requestLoaders(c)
	if !ok {
		return
	}

	relationship, err := loaders.Relationships.Load(model.Key{EntityID: userID, RequesterID: requesterID})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": relationship})
}

// handleFeed joins posts with whether the requester liked them, both
// lookups are in flight at the same time
func (s *Server) handleFeed(c *gin.Context) {
	ids, ok := queryIDs(c, "ids")
	if !ok {
		return
	}
	requesterID, err := strconv.ParseInt(c.Query("requester"), 10, 64)
	if err != nil || requesterID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requester parameter required"})
		return
	}
	loaders, ok := requestLoaders(c)
	if !ok {
		return
	}

	keys := make([]model.Key, len(ids))
	for i, id := range ids {
		keys[i] = model.Key{EntityID: id, RequesterID: requesterID}
	}
	postsThunk := loaders.Posts.LoadAllThunk(ids)
	likedThunk := loaders.LikedPosts.LoadAllThunk(keys)
	posts, errs := postsThunk()
	liked, likedErrs := likedThunk()

	entries := make([]feedEntry, len(ids))
	for i := range ids {
		if errs[i] == nil && likedErrs[i] != nil {
			errs[i] = likedErrs[i]
		}
		entries[i] = feedEntry{PostView: posts[i], Liked: liked[i]}
	}
	respond(c, ids, entries, errs)
}

func (s *Server) handleTrending(c *gin.Context) {
	hashtags, err := s.trending.Get(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hashtags})
}

// respond writes one item per id in the requested order. Missing ids are
// reported next to the found ones, any other failure fails the request.
func respond[T any](c *gin.Context, ids []int64, values []T, errs []error) {
	items := make([]item[T], len(ids))
	for i, id := range ids {
		items[i].ID = id
		switch err := errs[i]; {
		case err == nil:
			value := values[i]
			items[i].Value = &value
		case batchload.IsNotFound(err):
			items[i].Error = err.Error()
		default:
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func fail(c *gin.Context, err error) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("Lookup failed.")
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "entity store unavailable"})
}

func requestLoaders(c *gin.Context) (*resolver.Loaders, bool) {
	loaders := resolver.For(c.Request.Context())
	if loaders == nil {
		_ = c.Error(errNoLoaders)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errNoLoaders.Error()})
		return nil, false
	}
	return loaders, true
}

// queryIDs parses a comma separated list of ids, the order and repeats are kept
func queryIDs(c *gin.Context, name string) ([]int64, bool) {
	ids, err := parseIDs(c.Query(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return ids, true
}

func parseIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, errors.New("ids parameter required")
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxIDs {
		return nil, fmt.Errorf("at most %d ids per request", maxIDs)
	}
	ids := make([]int64, len(parts))
	for i, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids[i] = id
	}
	return ids, nil
}
