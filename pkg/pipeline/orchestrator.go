// Package pipeline runs fetch, decode and aggregate for one feed descriptor
// in the background and delivers the outcome to a sink exactly once.
//
// At most one run is in flight per Orchestrator. A Run issued while another
// is in flight is rejected with a *BusyError; the in-flight run is not
// disturbed. A cancelled run delivers nothing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/parking-feed/pkg/client"
	"github.com/Sternrassler/parking-feed/pkg/decode"
	"github.com/Sternrassler/parking-feed/pkg/feed"
	"github.com/Sternrassler/parking-feed/pkg/logging"
	"github.com/Sternrassler/parking-feed/pkg/pagination"
	"github.com/Sternrassler/parking-feed/pkg/parking"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher retrieves a raw body for a URL. *client.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*client.Response, error)
}

// Decoder turns a raw body into facilities. *decode.Decoder satisfies it.
type Decoder interface {
	Decode(body string) ([]parking.Facility, error)
	DecodePage(body string) (*decode.Page, error)
}

// Result is the single delivery of a run. Exactly one of Facilities and Err
// is meaningful.
type Result struct {
	RunID      string
	Facilities []parking.FacilityView
	Err        error
}

// Sink receives the result of a run on the run's goroutine.
type Sink func(Result)

// Config holds orchestrator configuration.
type Config struct {
	Fetcher Fetcher
	Decoder Decoder
	// Logger defaults to the global logger with component=pipeline.
	Logger *zerolog.Logger
	// Pagination configures RunAll.
	Pagination pagination.Config
}

// Orchestrator runs the pipeline with a reject single-flight policy.
type Orchestrator struct {
	fetcher    Fetcher
	decoder    Decoder
	logger     zerolog.Logger
	pagination pagination.Config

	busy    atomic.Bool
	mu      sync.Mutex
	current *run
}

type run struct {
	id      string
	started time.Time
	cancel  context.CancelFunc

	mu        sync.Mutex
	cancelled bool
}

type work func(ctx context.Context, logger zerolog.Logger, desc feed.Descriptor) ([]parking.FacilityView, error)

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.Decoder == nil {
		return nil, errors.New("decoder is required")
	}

	logger := log.With().Str("component", "pipeline").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Orchestrator{
		fetcher:    cfg.Fetcher,
		decoder:    cfg.Decoder,
		logger:     logger,
		pagination: cfg.Pagination,
	}, nil
}

// Run starts a single-window run for desc and returns immediately.
// It returns an error without calling sink when desc is invalid or another
// run is in flight (*BusyError). Otherwise sink is called exactly once from
// the run's goroutine, unless the run is cancelled first.
func (o *Orchestrator) Run(ctx context.Context, desc feed.Descriptor, sink Sink) error {
	return o.start(ctx, desc, sink, o.fetchWindow)
}

// RunAll is Run over every window of the feed: desc's window is fetched
// first, the remaining windows follow in parallel and rows are aggregated
// across windows in window order.
func (o *Orchestrator) RunAll(ctx context.Context, desc feed.Descriptor, sink Sink) error {
	return o.start(ctx, desc, sink, o.fetchAllWindows)
}

// Cancel cancels the in-flight run, if any. Once Cancel returns the run
// delivers nothing.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	r := o.current
	o.mu.Unlock()

	if r == nil {
		return
	}

	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
	r.cancel()

	o.logger.Debug().Str("run_id", r.id).Msg("Run cancel requested")
}

// Busy reports whether a run is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

func (o *Orchestrator) start(ctx context.Context, desc feed.Descriptor, sink Sink, w work) error {
	if sink == nil {
		return errors.New("sink is required")
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	if !o.busy.CompareAndSwap(false, true) {
		runsTotal.WithLabelValues(outcomeBusy).Inc()
		busy := &BusyError{}
		o.mu.Lock()
		if o.current != nil {
			busy.RunID = o.current.id
		}
		o.mu.Unlock()
		o.logger.Debug().Str("run_id", busy.RunID).Msg("Run rejected, pipeline busy")
		return busy
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:      uuid.NewString(),
		started: time.Now(),
		cancel:  cancel,
	}

	o.mu.Lock()
	o.current = r
	o.mu.Unlock()

	go o.execute(runCtx, r, desc, sink, w)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run, desc feed.Descriptor, sink Sink, w work) {
	defer r.cancel()

	logger := o.logger.With().Str("run_id", r.id).Logger()
	logger.Debug().
		Str("url", logging.RedactURL(desc.URL())).
		Msg("Run started")

	views, err := w(ctx, logger, desc)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Released before delivery so the sink may start the next run.
	o.release(r)
	duration := time.Since(r.started)
	runDuration.Observe(duration.Seconds())

	if r.cancelled || ctx.Err() != nil {
		runsTotal.WithLabelValues(outcomeCancelled).Inc()
		logger.Debug().Dur("duration", duration).Msg("Run cancelled, nothing delivered")
		return
	}

	if err != nil {
		runsTotal.WithLabelValues(outcomeFailed).Inc()
		logger.Error().
			Err(err).
			Str("stage", string(StageOf(err))).
			Dur("duration", duration).
			Msg("Run failed")
	} else {
		runsTotal.WithLabelValues(outcomeOK).Inc()
		logger.Info().
			Int("facilities", len(views)).
			Dur("duration", duration).
			Msg("Run complete")
	}

	sink(Result{RunID: r.id, Facilities: views, Err: err})
}

func (o *Orchestrator) release(r *run) {
	o.mu.Lock()
	if o.current == r {
		o.current = nil
	}
	o.mu.Unlock()
	o.busy.Store(false)
}

// fetchWindow runs the stages for the single window desc names.
func (o *Orchestrator) fetchWindow(ctx context.Context, logger zerolog.Logger, desc feed.Descriptor) ([]parking.FacilityView, error) {
	// Step 1: Build URL
	url := desc.URL()

	// Step 2: Fetch
	resp, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	logger.Debug().
		Int("status_code", resp.StatusCode).
		Bool("from_cache", resp.FromCache).
		Int("bytes", len(resp.Body)).
		Msg("Body fetched")

	// Step 3: Decode
	facilities, err := o.decoder.Decode(resp.Body)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	// Step 4: Aggregate
	return parking.Aggregate(facilities), nil
}

// fetchAllWindows fetches every window starting at desc's and aggregates
// the concatenated rows.
func (o *Orchestrator) fetchAllWindows(ctx context.Context, logger zerolog.Logger, desc feed.Descriptor) ([]parking.FacilityView, error) {
	bf := pagination.NewBatchFetcher(&windowFetcher{o: o, desc: desc}, o.pagination)

	pages, err := bf.FetchAll(ctx, pagination.Window{Start: desc.Offset, End: desc.Limit})
	if err != nil {
		return nil, err
	}

	var facilities []parking.Facility
	for _, page := range pages {
		facilities = append(facilities, page.Facilities...)
	}
	logger.Debug().
		Int("windows", len(pages)).
		Int("rows", len(facilities)).
		Msg("Windows fetched")

	return parking.Aggregate(facilities), nil
}

// windowFetcher adapts the fetch and decode stages to pagination.PageFetcher.
type windowFetcher struct {
	o    *Orchestrator
	desc feed.Descriptor
}

func (wf *windowFetcher) FetchPage(ctx context.Context, w pagination.Window) (*pagination.Page, error) {
	resp, err := wf.o.fetcher.Fetch(ctx, wf.desc.WithWindow(w.Start, w.End).URL())
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}

	page, err := wf.o.decoder.DecodePage(resp.Body)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	return &pagination.Page{
		Window:     w,
		TotalCount: page.TotalCount,
		Facilities: page.Facilities,
	}, nil
}
