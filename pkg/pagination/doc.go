// Package pagination fetches every window of the parking feed in parallel.
//
// The service serves at most 1000 rows per request and addresses them with a
// 1-based inclusive START/END pair in the URL path. Each page carries
// list_total_count, so after the first window the remaining windows are
// known up front.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(pageFetcher, pagination.DefaultConfig())
//	pages, err := fetcher.FetchAll(ctx, pagination.Window{Start: 1, End: 1000})
//
// The batch fetcher:
//   - Fetches the first window to learn the total row count
//   - Spawns a bounded worker pool for the remaining windows
//   - Fails the whole fetch on the first window error
//   - Returns pages in window order
package pagination
