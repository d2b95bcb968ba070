package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/parking-feed/pkg/decode"
	"github.com/Sternrassler/parking-feed/pkg/feed"
	"github.com/Sternrassler/parking-feed/pkg/logging"
	"github.com/Sternrassler/parking-feed/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvBaseURL   = "PARKING_FEED_BASE_URL"
	EnvRedisAddr = "REDIS_URL"
	EnvPort      = "PORT"
)

// Default returns the configuration used for every key the file omits.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			Envelope: decode.DefaultEnvelope,
			Offset:   1,
			Limit:    1000,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 8 << 20,
		},
		Cache: CacheConfig{
			RedisAddr: "localhost:6379",
			TTL:       time.Minute,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Pagination: PaginationConfig{
			MaxConcurrency: 4,
			Timeout:        15 * time.Second,
			MaxWindows:     50,
		},
	}
}

// Load reads path (optional), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.Feed.BaseURL = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cache.RedisAddr = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("feed_url", validateFeedURL); err != nil {
		return fmt.Errorf("register feed_url validation: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// validateFeedURL accepts http(s) URLs with a host, scheme optional as the
// fetcher defaults to http://.
func validateFeedURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(feed.NormalizeURL(fl.Field().String()))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Descriptor returns the configured feed window.
func (c *Config) Descriptor() feed.Descriptor {
	return feed.Descriptor{
		BaseURL: c.Feed.BaseURL,
		Offset:  c.Feed.Offset,
		Limit:   c.Feed.Limit,
		Filter:  c.Feed.Filter,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(c.Log.Level)
	lc.Pretty = c.Log.Pretty
	return lc
}

// BatchConfig returns the pagination settings.
func (c *Config) BatchConfig() pagination.Config {
	return pagination.Config{
		MaxConcurrency: c.Pagination.MaxConcurrency,
		Timeout:        c.Pagination.Timeout,
		MaxWindows:     c.Pagination.MaxWindows,
	}
}
