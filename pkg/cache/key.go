package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "parking:feed:"

// Key identifies a cached response by its request URL.
type Key struct {
	// URL is the full request URL, access key included
	URL string
}

// String generates a deterministic cache key string.
// Format: parking:feed:<hex sha256 of URL>
func (k Key) String() string {
	sum := sha256.Sum256([]byte(k.URL))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
