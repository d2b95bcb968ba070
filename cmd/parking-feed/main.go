package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/parking-feed/pkg/cache"
	"github.com/Sternrassler/parking-feed/pkg/client"
	"github.com/Sternrassler/parking-feed/pkg/config"
	"github.com/Sternrassler/parking-feed/pkg/decode"
	"github.com/Sternrassler/parking-feed/pkg/feed"
	"github.com/Sternrassler/parking-feed/pkg/logging"
	"github.com/Sternrassler/parking-feed/pkg/metrics"
	"github.com/Sternrassler/parking-feed/pkg/parking"
	"github.com/Sternrassler/parking-feed/pkg/pipeline"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	modeOneshot = "oneshot"
	modeServe   = "serve"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	mode := flag.String("mode", modeOneshot, "oneshot or serve")
	all := flag.Bool("all", false, "fetch every window of the feed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *all {
		cfg.Pagination.All = true
	}

	logging.Setup(cfg.Logging())
	logger := logging.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	switch *mode {
	case modeOneshot:
		if err := runOnce(ctx, a, os.Stdout); err != nil {
			logger.Error().Err(err).Msg("Run failed")
			os.Exit(1)
		}
	case modeServe:
		if err := serve(ctx, a, cfg.Server.Port); err != nil {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	default:
		logger.Fatal().Str("mode", *mode).Msg("Unknown mode")
	}
}

// app wires the pipeline from configuration.
type app struct {
	desc         feed.Descriptor
	all          bool
	client       *client.Client
	redis        *redis.Client
	cache        *cache.Manager
	orchestrator *pipeline.Orchestrator
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		desc: cfg.Descriptor(),
		all:  cfg.Pagination.All,
	}

	ccfg := client.DefaultConfig()
	ccfg.Timeout = cfg.HTTP.Timeout
	ccfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	ccfg.CacheTTL = cfg.Cache.TTL

	if cfg.Cache.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.DB,
		})
		a.cache = cache.NewManager(a.redis)
		if err := a.cache.Ping(ctx); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		ccfg.Cache = a.cache
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Response cache enabled")
	}

	c, err := client.New(ccfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	a.client = c

	o, err := pipeline.New(pipeline.Config{
		Fetcher:    c,
		Decoder:    decode.New(cfg.Feed.Envelope, logging.NewLogger("decode")),
		Pagination: cfg.BatchConfig(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	a.orchestrator = o

	return a, nil
}

// Close releases the HTTP and Redis connections.
func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// start launches one run, single- or multi-window.
func (a *app) start(ctx context.Context, sink pipeline.Sink) error {
	if a.all {
		return a.orchestrator.RunAll(ctx, a.desc, sink)
	}
	return a.orchestrator.Run(ctx, a.desc, sink)
}

// await starts a run and blocks until it delivers or ctx ends.
func (a *app) await(ctx context.Context) ([]parking.FacilityView, error) {
	results := make(chan pipeline.Result, 1)
	if err := a.start(ctx, func(r pipeline.Result) { results <- r }); err != nil {
		return nil, err
	}

	select {
	case r := <-results:
		return r.Facilities, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func runOnce(ctx context.Context, a *app, out io.Writer) error {
	views, err := a.await(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func serve(ctx context.Context, a *app, port int) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           newMux(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting parking feed server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	a.orchestrator.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	var p pinger
	if a.cache != nil {
		p = a.cache
	}
	mux.HandleFunc("/ready", readyHandler(p))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/facilities", facilitiesHandler(a))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

type pinger interface {
	Ping(ctx context.Context) error
}

// readyHandler reports ready when the cache, if any, answers.
func readyHandler(p pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("Readiness check failed")
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func facilitiesHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		views, err := a.await(r.Context())
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				log.Warn().Err(err).Int("status_code", status).Msg("Facilities request failed")
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(views); err != nil {
			log.Error().Err(err).Msg("Failed to write response")
		}
	}
}

// statusFor maps a run error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, pipeline.ErrBusy) {
		return http.StatusServiceUnavailable
	}

	switch pipeline.StageOf(err) {
	case pipeline.StageFetch, pipeline.StageDecode:
		return http.StatusBadGateway
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
