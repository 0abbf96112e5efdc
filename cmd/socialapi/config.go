package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/flowscan/batchload"
	"github.com/flowscan/batchload/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config of the socialapi binary, read from the config file and BATCHLOAD_ prefixed
// environment variables
type Config struct {
	Addr     string                  `mapstructure:"addr"`
	LogLevel string                  `mapstructure:"logLevel"`
	Batcher  batchload.BatcherConfig `mapstructure:"batcher"`
	Store    store.Config            `mapstructure:"store"`
	Cache    CacheConfig             `mapstructure:"cache"`
}

// CacheConfig of the layers in front of the entity store
type CacheConfig struct {
	// Retention of the in-process layer, 0 disables it
	Memory time.Duration `mapstructure:"memory"`

	// Redis is used as a second layer when an address is set
	Redis RedisConfig `mapstructure:"redis"`

	// Trending is how long the trending hashtags are kept
	Trending time.Duration `mapstructure:"trending"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	PoolSize  int           `mapstructure:"poolSize"`
	KeyPrefix string        `mapstructure:"keyPrefix"`
	Retention time.Duration `mapstructure:"retention"`
}

func defaultConfig(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("logLevel", "info")
	v.SetDefault("batcher.wait", batchload.DefaultWait)
	v.SetDefault("batcher.maxBatch", 100)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.dsn", "file:socialapi.db?_pragma=busy_timeout(5000)")
	v.SetDefault("store.maxOpenConns", 0)
	v.SetDefault("store.migrate", false)
	v.SetDefault("cache.memory", 5*time.Second)
	v.SetDefault("cache.trending", time.Minute)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.poolSize", 10)
	v.SetDefault("cache.redis.keyPrefix", "socialapi:")
	v.SetDefault("cache.redis.retention", 10*time.Minute)
}

// LoadConfig reads the configuration, the file is optional
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	defaultConfig(v)

	v.SetEnvPrefix("BATCHLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level: %w", err)
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger(), nil
}
