package config

import "time"

// FeedConfig describes the upstream window to fetch.
type FeedConfig struct {
	// BaseURL embeds the access key and feed name, ends in "/". The scheme
	// may be omitted.
	BaseURL  string `yaml:"base_url" validate:"required,feed_url"`
	Envelope string `yaml:"envelope" validate:"required"`
	Offset   int    `yaml:"offset" validate:"gte=0"`
	Limit    int    `yaml:"limit" validate:"gt=0,gtefield=Offset"`
	Filter   string `yaml:"filter"`
}

// HTTPConfig bounds every feed request.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gt=0"`
}

// CacheConfig configures the optional Redis response cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr" validate:"hostname_port"`
	DB        int           `yaml:"db" validate:"gte=0"`
	TTL       time.Duration `yaml:"ttl" validate:"gt=0"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
}

// PaginationConfig configures multi-window runs.
type PaginationConfig struct {
	// All fetches every window instead of the configured one.
	All            bool          `yaml:"all"`
	MaxConcurrency int           `yaml:"max_concurrency" validate:"gt=0"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxWindows     int           `yaml:"max_windows" validate:"gt=0"`
}

// Config is the root configuration structure
type Config struct {
	Feed       FeedConfig       `yaml:"feed"`
	HTTP       HTTPConfig       `yaml:"http"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Pagination PaginationConfig `yaml:"pagination"`
}
