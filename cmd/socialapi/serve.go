package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/extension"
	"github.com/flowscan/batchload/internal/api"
	"github.com/flowscan/batchload/internal/model"
	"github.com/flowscan/batchload/internal/resolver"
	"github.com/flowscan/batchload/internal/store"
	"github.com/flowscan/batchload/layer"
	"github.com/flowscan/batchload/layer/tlru"
	"github.com/mediocregopher/radix/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	entities, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer entities.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := extension.NewStoreMetrics()
	if err := metrics.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	cacheConfig, closeCache, err := newCacheConfig(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeCache()

	cache, err := resolver.NewCache(entities, cacheConfig)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	trendingCache, err := tlru.NewCache[batchload.StaticKey, []model.Hashtag](tlru.Config{
		MaxItems:   1,
		DefaultTTL: cfg.Cache.Trending,
	})
	if err != nil {
		return err
	}
	trending, err := api.NewTrending(entities, trendingCache,
		&extension.Logger[batchload.StaticKey, []model.Hashtag]{Logger: &logger},
		extension.NewPrometheusMetrics[batchload.StaticKey, []model.Hashtag](metrics),
	)
	if err != nil {
		return fmt.Errorf("create trending: %w", err)
	}

	server, err := api.NewServer(entities, api.Config{
		Loaders: resolver.Options{
			Batcher: cfg.Batcher,
			Cache:   cache,
			Logger:  &logger,
		},
		Trending: trending,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return server.Run(ctx, cfg.Addr)
}

// newCacheConfig builds the cache layers of the shared repositories. Users are
// kept in redis with gob, partners and vendors as JSON.
func newCacheConfig(ctx context.Context, cfg Config, logger zerolog.Logger, metrics *extension.StoreMetrics) (resolver.CacheConfig, func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close cache.")
			}
		}
	}

	config := resolver.CacheConfig{
		Batcher: cfg.Batcher,
		Extensions: []batchload.Extension{
			&extension.Logger[int64, model.User]{Logger: &logger},
			&extension.Logger[int64, model.Partner]{Logger: &logger},
			&extension.Logger[int64, model.Vendor]{Logger: &logger},
			extension.NewPrometheusMetrics[int64, model.User](metrics),
			extension.NewPrometheusMetrics[int64, model.Partner](metrics),
			extension.NewPrometheusMetrics[int64, model.Vendor](metrics),
		},
	}

	if cfg.Cache.Memory > 0 {
		users := layer.NewMemory[int64, model.User](layer.MemoryConfig{Retention: cfg.Cache.Memory})
		partners := layer.NewMemory[int64, model.Partner](layer.MemoryConfig{Retention: cfg.Cache.Memory})
		vendors := layer.NewMemory[int64, model.Vendor](layer.MemoryConfig{Retention: cfg.Cache.Memory})
		closers = append(closers, users.Close, partners.Close, vendors.Close)
		config.Users = append(config.Users, users)
		config.Partners = append(config.Partners, partners)
		config.Vendors = append(config.Vendors, vendors)
	}

	if cfg.Cache.Redis.Addr != "" {
		pool, err := radix.NewPool("tcp", cfg.Cache.Redis.Addr, cfg.Cache.Redis.PoolSize)
		if err != nil {
			closeAll()
			return resolver.CacheConfig{}, nil, fmt.Errorf("connect redis: %w", err)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		closers = append(closers, pool.Close, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			closeAll()
			return resolver.CacheConfig{}, nil, fmt.Errorf("ping redis: %w", err)
		}

		redisConfig := func(kind string) layer.RedisConfig {
			return layer.RedisConfig{
				KeyPrefix: cfg.Cache.Redis.KeyPrefix + kind + ":",
				Retention: cfg.Cache.Redis.Retention,
			}
		}
		config.Users = append(config.Users, layer.NewRedisGob[int64, model.User](pool, redisConfig("user")))
		config.Partners = append(config.Partners, layer.NewRedisJSON[int64, model.Partner](client, redisConfig("partner"), logger))
		config.Vendors = append(config.Vendors, layer.NewRedisJSON[int64, model.Vendor](client, redisConfig("vendor"), logger))
		logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Redis cache enabled.")
	}

	return config, closeAll, nil
}
