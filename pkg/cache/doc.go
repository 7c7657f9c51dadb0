// Package cache provides a session-scoped page cache for the artworks API
// with a Redis backend.
//
// Entries are scoped to one browsing session: every key carries the
// session id, and the session's keys are removed when the client closes.
// Nothing is shared between sessions.
//
// Features:
//
// - Fresh entries are served without touching the network
// - Stale entries are revalidated with If-None-Match / If-Modified-Since
// - Freshness from Cache-Control max-age or Expires, DefaultTTL otherwise
// - Prometheus metrics for observability
// - Deterministic cache key generation
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Session:     sessionID,
//		Endpoint:    "/artworks",
//		QueryParams: url.Values{"page": []string{"2"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the API
//	}
//
// # Conditional Requests
//
//	if entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 response means the cached body is still valid
//	}
//
// # Metrics
//
//   - artic_cache_hits_total{state="fresh|revalidated"} - Cache hits
//   - artic_cache_misses_total - Cache misses
//   - artic_cache_size_bytes - Bytes written to the cache
//   - artic_conditional_requests_total - Revalidation requests sent
//   - artic_304_responses_total - Revalidations answered with 304
//   - artic_cache_errors_total{operation} - Cache operation errors
package cache
