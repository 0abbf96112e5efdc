// Package api serves the joined views over HTTP. Every request gets its own
// loaders, so lookups made while handling it share batches and nothing
// leaks between requests.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/model"
	"github.com/flowscan/batchload/internal/resolver"
	"github.com/flowscan/batchload/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Config of the API server
type Config struct {
	// Loaders configures the request scoped loaders
	Loaders resolver.Options

	// Trending resolves the trending hashtags, straight from the store if nil
	Trending *batchload.StaticRepository[[]model.Hashtag]

	// Registry exposed on /metrics, nothing is exposed if nil
	Registry *prometheus.Registry

	Logger zerolog.Logger
}

// Server is the HTTP API
type Server struct {
	store    store.EntityStore
	config   Config
	router   *gin.Engine
	logger   zerolog.Logger
	handler  http.Handler
	trending *batchload.StaticRepository[[]model.Hashtag]
}

// NewServer creates the API on top of an entity store
func NewServer(s store.EntityStore, config Config) (*Server, error) {
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		store:    s,
		config:   config,
		router:   router,
		logger:   config.Logger.With().Str("component", "API").Logger(),
		trending: config.Trending,
	}
	if srv.config.Loaders.Logger == nil {
		srv.config.Loaders.Logger = &srv.logger
	}
	if srv.trending == nil {
		trending, err := NewTrending(s, nil)
		if err != nil {
			return nil, err
		}
		srv.trending = trending
	}
	router.Use(srv.requestLogger)

	router.GET("/healthz", srv.handleHealth)
	if config.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.GET("/users", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.User] { return l.Users }))
		api.GET("/partners", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.Partner] { return l.Partners }))
		api.GET("/vendors", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.Vendor] { return l.Vendors }))
		api.GET("/posts", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.PostView] { return l.Posts }))
		api.GET("/comments", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.CommentView] { return l.Comments }))
		api.GET("/replies", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.ReplyView] { return l.Replies }))
		api.GET("/messages", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.MessageView] { return l.Messages }))
		api.GET("/buyers", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.BuyerView] { return l.Buyers }))
		api.GET("/campaigns", handleBatch(func(l *resolver.Loaders) *batchload.Batcher[int64, model.CampaignView] { return l.Campaigns }))
		api.GET("/banners", srv.handleBanners)
		api.GET("/users/:id/relationship", srv.handleRelationship)
		api.GET("/feed", srv.handleFeed)
		api.GET("/hashtags/trending", srv.handleTrending)
	}

	srv.handler = resolver.Middleware(s, srv.config.Loaders)(router)
	return srv, nil
}

// Handler is the http.Handler of the API
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves the API until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening.")
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down API server.")
		return server.Shutdown(shutdownCtx)
	}
}

// requestLogger tags the request with an id and logs it once handled
func (s *Server) requestLogger(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(requestIDHeader, requestID)

	logger := s.logger.With().Str("requestId", requestID).Logger()
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

	started := time.Now()
	c.Next()

	event := logger.Debug()
	if c.Writer.Status() >= http.StatusInternalServerError {
		event = logger.Warn()
	}
	event.
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", c.Writer.Status()).
		Dur("duration", time.Since(started)).
		Msg("Request handled.")
}

func (s *Server) handleHealth(c *gin.Context) {
	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
