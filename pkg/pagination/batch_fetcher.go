package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/parking-feed/pkg/parking"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
	// Timeout per window fetch
	Timeout time.Duration
	// MaxWindows caps the number of windows fetched, first one included
	MaxWindows int
}

// DefaultConfig returns safe default configuration for the open-data API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		MaxWindows:     50,
	}
}

// Window is a 1-based inclusive row range.
type Window struct {
	Start int
	End   int
}

// Size returns the number of rows the window covers.
func (w Window) Size() int {
	return w.End - w.Start + 1
}

// Page is one fetched and decoded window.
type Page struct {
	Window     Window
	TotalCount int
	Facilities []parking.Facility
}

// PageFetcher fetches and decodes a single window.
type PageFetcher interface {
	FetchPage(ctx context.Context, w Window) (*Page, error)
}

// BatchFetcher handles parallel fetching of multiple windows
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxWindows <= 0 {
		config.MaxWindows = defaults.MaxWindows
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// Windows returns the windows following first, sized like first, up to
// total rows and at most limit windows.
func Windows(first Window, total, limit int) []Window {
	size := first.Size()
	if size <= 0 {
		return nil
	}

	var windows []Window
	for start := first.End + 1; start <= total && len(windows) < limit; start += size {
		end := start + size - 1
		if end > total {
			end = total
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}

type windowResult struct {
	index int
	page  *Page
	err   error
}

// FetchAll fetches first and every following window in parallel.
// Pages are returned in window order; any failure fails the whole fetch.
func (bf *BatchFetcher) FetchAll(ctx context.Context, first Window) ([]*Page, error) {
	start := time.Now()

	firstCtx, cancelFirst := context.WithTimeout(ctx, bf.config.Timeout)
	firstPage, err := bf.fetcher.FetchPage(firstCtx, first)
	cancelFirst()
	if err != nil {
		return nil, fmt.Errorf("fetch window %d-%d: %w", first.Start, first.End, err)
	}

	remaining := Windows(first, firstPage.TotalCount, bf.config.MaxWindows-1)

	// Single window optimization
	if len(remaining) == 0 {
		log.Debug().
			Int("total_rows", firstPage.TotalCount).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single window)")
		return []*Page{firstPage}, nil
	}

	log.Info().
		Int("total_rows", firstPage.TotalCount).
		Int("windows", len(remaining)+1).
		Msg("Starting parallel window fetch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pages := make([]*Page, len(remaining)+1)
	pages[0] = firstPage

	queue := make(chan int, len(remaining))
	for i := range remaining {
		queue <- i
	}
	close(queue)

	results := make(chan windowResult, len(remaining))

	workers := bf.config.MaxConcurrency
	if workers > len(remaining) {
		workers = len(remaining)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, remaining, queue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
				cancel()
			}
			continue
		}
		pages[result.index+1] = result.page
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info().
		Int("windows", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return pages, nil
}

// worker processes windows from the queue
func (bf *BatchFetcher) worker(ctx context.Context, windows []Window, queue <-chan int, results chan<- windowResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for index := range queue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("windows_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		w := windows[index]
		windowCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.FetchPage(windowCtx, w)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("start", w.Start).
				Int("end", w.End).
				Msg("Window fetch failed")
			results <- windowResult{index: index, err: fmt.Errorf("fetch window %d-%d: %w", w.Start, w.End, err)}
			return
		}

		results <- windowResult{index: index, page: page}
		processed++
	}
}
