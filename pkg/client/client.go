// Package client fetches raw bodies from the parking occupancy feed with a
// bounded request time, a bounded body size and an optional shared cache.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/parking-feed/pkg/cache"
	"github.com/Sternrassler/parking-feed/pkg/feed"
	"github.com/Sternrassler/parking-feed/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for feed requests.
var (
	feedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_feed_requests_total",
		Help: "Total feed requests by status",
	}, []string{"status"})

	feedRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_feed_request_duration_seconds",
		Help:    "Feed request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	feedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_feed_errors_total",
		Help: "Total feed fetch errors by class",
	}, []string{"class"})
)

// Response is the raw result of a successful fetch.
type Response struct {
	StatusCode int
	Body       string
	// FromCache is true when Body came from the response cache
	FromCache bool
}

// Config holds the client configuration.
type Config struct {
	// Timeout bounds the whole request including the body read. Must be > 0.
	Timeout time.Duration

	// MaxBodyBytes bounds the response body. Must be > 0.
	MaxBodyBytes int64

	// Cache is optional; nil disables response caching
	Cache *cache.Manager

	// CacheTTL is how long a fetched body stays in Cache
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxBodyBytes: 8 << 20,
		CacheTTL:     1 * time.Minute,
	}
}

// Client fetches feed bodies. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// New creates a new feed client.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max_body_bytes must be > 0 (got %d)", cfg.MaxBodyBytes)
	}

	logger := log.With().Str("component", "parking-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: logger,
	}, nil
}

// NormalizeURL prefixes http:// when rawURL carries no scheme.
func NormalizeURL(rawURL string) string {
	return feed.NormalizeURL(rawURL)
}

// Fetch performs one GET against rawURL and returns the body of a 200
// response. Every failure is a *NetworkError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	target := NormalizeURL(rawURL)
	redacted := logging.RedactURL(target)

	startTime := time.Now()
	defer func() {
		feedRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheKey := cache.Key{URL: target}
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", redacted).Dur("ttl", entry.TTL()).Msg("Serving feed from cache")
			feedRequestsTotal.WithLabelValues("cache").Inc()
			return &Response{StatusCode: entry.StatusCode, Body: string(entry.Body), FromCache: true}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", redacted).Msg("Cache get error")
		}
	}

	// Step 2: Execute HTTP Request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.fail(&NetworkError{
			Class: ErrorClassNetwork,
			URL:   redacted,
			Err:   fmt.Errorf("create request: %w", redactCause(err, redacted)),
		}, "network_error")
	}

	c.logger.Debug().Str("url", redacted).Msg("Executing feed request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(&NetworkError{Class: ErrorClassNetwork, URL: redacted, Err: redactCause(err, redacted)}, "network_error")
	}
	defer resp.Body.Close()

	// Step 3: Handle non-200
	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, c.fail(&NetworkError{
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			URL:        redacted,
		}, strconv.Itoa(resp.StatusCode))
	}

	// Step 4: Read bounded body
	body, err := readBody(resp.Body, c.config.MaxBodyBytes)
	if err != nil {
		class := ErrorClassNetwork
		if errors.Is(err, ErrBodyTooLarge) {
			class = ErrorClassBodyLimit
		}
		return nil, c.fail(&NetworkError{
			StatusCode: resp.StatusCode,
			Class:      class,
			URL:        redacted,
			Err:        err,
		}, string(class))
	}

	feedRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("url", redacted).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Feed request complete")

	// Step 5: Update Cache on success
	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, cache.NewEntry(body, resp.StatusCode, c.config.CacheTTL)); err != nil {
			c.logger.Warn().Err(err).Str("url", redacted).Msg("Failed to cache response")
		}
	}

	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

// fail records metrics and logs a fetch failure.
func (c *Client) fail(err *NetworkError, status string) error {
	feedErrorsTotal.WithLabelValues(string(err.Class)).Inc()
	feedRequestsTotal.WithLabelValues(status).Inc()

	event := c.logger.Error()
	if errors.Is(err.Err, context.Canceled) {
		event = c.logger.Debug()
	}
	event.
		Str("url", err.URL).
		Int("status_code", err.StatusCode).
		Str("error_class", string(err.Class)).
		Err(err.Err).
		Msg("Feed request failed")

	return err
}

// redactCause replaces the URL net/http embeds in its errors, which
// carries the access key, with the redacted form.
func redactCause(err error, redacted string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redacted
	}
	return err
}

// readBody reads at most limit bytes and reports ErrBodyTooLarge beyond that.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetLogger replaces the component logger.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}
