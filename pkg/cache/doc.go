// Package cache provides an optional Redis-backed cache for raw feed
// responses.
//
// The upstream open-data service enforces a daily call quota, and the
// occupancy figures it serves only change every few minutes. Several
// processes pointed at the same Redis can share one fetched body for a short
// TTL instead of each spending a call.
//
// Only raw 200 bodies are cached. Decoding and aggregation always run again
// on the cached body, so nothing derived is stored.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{URL: requestURL}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the service, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, http.StatusOK, time.Minute))
//	}
//
// # Keys
//
// Request URLs embed the access key, so Key.String hashes the URL with
// SHA-256 and never stores it in clear text.
//
// # Encoding
//
// Entries are encoded with msgpack, which keeps the body as raw bytes
// instead of base64 inside JSON.
//
// # Metrics
//
//   - parking_feed_cache_hits_total - Cache hits
//   - parking_feed_cache_misses_total - Cache misses
//   - parking_feed_cache_errors_total{operation} - Cache operation errors
package cache
