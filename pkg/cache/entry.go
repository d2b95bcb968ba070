package cache

import "time"

// DefaultTTL is used when a caller stores an entry without a positive TTL.
const DefaultTTL = 1 * time.Minute

// Entry represents a cached feed response.
type Entry struct {
	// Body is the raw response body
	Body []byte `msgpack:"body"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `msgpack:"status_code"`

	// CachedAt is when we cached this response
	CachedAt time.Time `msgpack:"cached_at"`

	// Expires is when the entry becomes stale
	Expires time.Time `msgpack:"expires"`
}

// NewEntry creates an entry for body that expires after ttl.
func NewEntry(body []byte, statusCode int, ttl time.Duration) *Entry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Entry{
		Body:       body,
		StatusCode: statusCode,
		CachedAt:   now,
		Expires:    now.Add(ttl),
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
