// Package client provides the artworks API HTTP client with rate limiting,
// session-scoped caching, and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/Sternrassler/artic-grid/pkg/cache"
	"github.com/Sternrassler/artic-grid/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_requests_total",
		Help: "Total artworks API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artic_request_duration_seconds",
		Help:    "Artworks API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_errors_total",
		Help: "Total artworks API errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public artworks API.
	DefaultBaseURL = "https://api.artic.edu/api/v1"

	// DefaultPageLimit is the page size the API serves without a limit.
	DefaultPageLimit = 12

	// MaxPageLimit is the largest page size the API accepts.
	MaxPageLimit = 100

	// HeaderAICUserAgent identifies the caller to the API.
	HeaderAICUserAgent = "AIC-User-Agent"

	artworksEndpoint = "/artworks"
)

// Client is the artworks API client. It implements pagination.PageFetcher.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	session     string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without trailing slash.
	BaseURL string

	// User-Agent sent in User-Agent and AIC-User-Agent.
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// PageLimit is the remote page size; 0 uses the API default.
	PageLimit int

	// Fields restricts the returned record fields.
	Fields []string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Redis enables the session page cache and the shared request window.
	// Optional.
	Redis *redis.Client

	// RateLimit configures the request budget.
	RateLimit ratelimit.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Fields:    artwork.Fields,
		Timeout:   30 * time.Second,
		RateLimit: ratelimit.DefaultConfig(),
	}
}

// New creates a new artworks API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) url (got %q)", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.PageLimit < 0 || cfg.PageLimit > MaxPageLimit {
		return nil, fmt.Errorf("page_limit must be between 0 and %d (got %d)", MaxPageLimit, cfg.PageLimit)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	logger := log.With().Str("component", "artic-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, cfg.RateLimit, log.Logger),
		session:     uuid.NewString(),
		config:      cfg,
		logger:      logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// FetchPage fetches one remote page of artworks. Pages are 1-based.
func (c *Client) FetchPage(ctx context.Context, page int) (*artwork.Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if c.config.PageLimit > 0 {
		query.Set("limit", strconv.Itoa(c.config.PageLimit))
	}
	if len(c.config.Fields) > 0 {
		query.Set("fields", strings.Join(c.config.Fields, ","))
	}

	resp, err := c.Get(ctx, artworksEndpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var p artwork.Page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode artworks page",
			Err:        err,
		}
	}

	c.logger.Debug().
		Int("page", page).
		Int("records", len(p.Records)).
		Int("total", p.Pagination.Total).
		Msg("Fetched artworks page")

	return &p, nil
}

// Do performs an HTTP request with caching, rate limiting, and error
// classification. Responses with status >= 400 are returned as *APIError
// with the body closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Session cache: fresh entries are served without touching the budget.
	var cacheKey cache.CacheKey
	var cachedEntry *cache.CacheEntry
	if c.cache != nil {
		cacheKey = cache.CacheKey{
			Session:     c.session,
			Endpoint:    endpoint,
			QueryParams: req.URL.Query(),
		}

		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil && !entry.IsExpired() {
			cache.CacheHits.WithLabelValues("fresh").Inc()
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("age", entry.Age()).
				Msg("Serving fresh cache entry")
			return cache.EntryToResponse(entry), nil
		}
		cachedEntry = entry
	}

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassRateLimit,
			Message:    "request blocked locally",
			Err:        ratelimit.ErrRateLimited,
		}
	}

	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(HeaderAICUserAgent, c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("query", req.URL.RawQuery).
		Msg("Executing artworks request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}

	if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()
		cache.CacheHits.WithLabelValues("revalidated").Inc()
		resp.Body.Close()

		if err := c.cache.UpdateTTL(ctx, cacheKey, cache.FreshUntil(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		return cache.EntryToResponse(cachedEntry), nil
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		resp.Body.Close()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Artworks request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request to an API endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	target := c.config.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close drops this session's cached pages.
func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := c.cache.DeleteSession(ctx, c.session)
	if err != nil {
		return fmt.Errorf("drop session cache: %w", err)
	}

	c.logger.Debug().Str("session", c.session).Int("keys", n).Msg("Dropped session cache")
	return nil
}

// SessionID returns the id scoping this client's cache entries.
func (c *Client) SessionID() string {
	return c.session
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
