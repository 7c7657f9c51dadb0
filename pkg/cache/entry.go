package cache

import (
	"net/http"
	"time"
)

// StaleWindow is how long a stale page with validators is kept in Redis so
// the next fetch of that page can revalidate it instead of downloading it.
const StaleWindow = 10 * time.Minute

// CacheEntry is one cached artworks response, typically a single page.
type CacheEntry struct {
	// Data is the raw JSON body
	Data []byte `json:"data"`

	// ETag sent back as If-None-Match on revalidation
	ETag string `json:"etag"`

	// Expires is the freshness deadline derived from Cache-Control or Expires
	Expires time.Time `json:"expires"`

	// LastModified sent back as If-Modified-Since when there is no ETag
	LastModified time.Time `json:"last_modified"`

	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	CachedAt   time.Time   `json:"cached_at"`
}

// IsExpired reports whether the entry is stale and must be revalidated.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until the entry goes stale, or 0 when it already is.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age returns how long ago the entry was stored or last revalidated.
func (e *CacheEntry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return time.Since(e.CachedAt)
}

// HasValidators reports whether a stale entry can be revalidated with a
// conditional request.
func (e *CacheEntry) HasValidators() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// StorageTTL is the Redis expiry of the entry: its freshness plus
// StaleWindow when it can be revalidated. A result <= 0 means the entry is
// not worth storing.
func (e *CacheEntry) StorageTTL() time.Duration {
	ttl := e.TTL()
	if e.HasValidators() {
		ttl += StaleWindow
	}
	return ttl
}
