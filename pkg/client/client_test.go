package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/artic-grid/internal/testutil"
	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/Sternrassler/artic-grid/pkg/cache"
	"github.com/Sternrassler/artic-grid/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

const testUserAgent = "TestApp/1.0.0 (test@example.com)"

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// newTestClient builds a client with a budget that never throttles tests.
func newTestClient(t *testing.T, baseURL string, redisClient *redis.Client) *Client {
	t.Helper()

	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = baseURL
	cfg.Redis = redisClient
	cfg.RateLimit = ratelimit.Config{RequestsPerMinute: 6000, Burst: 100}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:        "empty user agent",
			mutate:      func(c *Config) { c.UserAgent = "" },
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name:        "empty base url",
			mutate:      func(c *Config) { c.BaseURL = "" },
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "relative base url",
			mutate:      func(c *Config) { c.BaseURL = "/api/v1" },
			expectError: true,
			errorMsg:    "absolute http(s) url",
		},
		{
			name:        "unsupported scheme",
			mutate:      func(c *Config) { c.BaseURL = "ftp://api.artic.edu" },
			expectError: true,
			errorMsg:    "absolute http(s) url",
		},
		{
			name:        "page limit too large",
			mutate:      func(c *Config) { c.PageLimit = 101 },
			expectError: true,
			errorMsg:    "page_limit must be between 0 and 100",
		},
		{
			name:        "negative page limit",
			mutate:      func(c *Config) { c.PageLimit = -1 },
			expectError: true,
			errorMsg:    "page_limit must be between 0 and 100",
		},
		{
			name:        "zero timeout",
			mutate:      func(c *Config) { c.Timeout = 0 },
			expectError: true,
			errorMsg:    "timeout must be positive",
		},
		{
			name:   "trailing slash accepted",
			mutate: func(c *Config) { c.BaseURL = "https://api.artic.edu/api/v1/" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(testUserAgent)
			tt.mutate(&cfg)

			client, err := New(cfg)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Error = %q, want it to contain %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Fatal("Expected client but got nil")
			}
			if strings.HasSuffix(client.config.BaseURL, "/") {
				t.Errorf("BaseURL = %q, want trailing slash trimmed", client.config.BaseURL)
			}
			if client.GetCache() != nil {
				t.Error("cache should be disabled without Redis")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(testUserAgent)

	if cfg.UserAgent != testUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, testUserAgent)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.PageLimit != 0 {
		t.Errorf("PageLimit = %d, want 0 (API default)", cfg.PageLimit)
	}
	if len(cfg.Fields) != len(artwork.Fields) {
		t.Errorf("Fields = %v, want %v", cfg.Fields, artwork.Fields)
	}
	if cfg.RateLimit.RequestsPerMinute != ratelimit.DefaultRequestsPerMinute {
		t.Errorf("RequestsPerMinute = %d, want %d", cfg.RateLimit.RequestsPerMinute, ratelimit.DefaultRequestsPerMinute)
	}
}

func TestClient_SessionID(t *testing.T) {
	a := newTestClient(t, DefaultBaseURL, nil)
	b := newTestClient(t, DefaultBaseURL, nil)

	if a.SessionID() == "" {
		t.Fatal("SessionID() is empty")
	}
	if a.SessionID() == b.SessionID() {
		t.Error("two clients share a session id")
	}
}

func TestFetchPage(t *testing.T) {
	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()

	client := newTestClient(t, mock.BaseURL(), nil)

	p, err := client.FetchPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if len(p.Records) != 12 {
		t.Fatalf("len(Records) = %d, want 12", len(p.Records))
	}
	if p.Records[0].ID != 13 {
		t.Errorf("first id = %d, want 13", p.Records[0].ID)
	}
	if p.Pagination.Total != 30 || p.Pagination.CurrentPage != 2 || p.Pagination.TotalPages != 3 {
		t.Errorf("Pagination = %+v, want total 30, page 2 of 3", p.Pagination)
	}

	// id 15 has no inscriptions in the fixture and must decode as falsy.
	if rec := artwork.Normalize(p.Records[2]); rec.Inscriptions != artwork.NoInscription {
		t.Errorf("Inscriptions = %q, want %q", rec.Inscriptions, artwork.NoInscription)
	}
}

func TestFetchPage_QueryAndHeaders(t *testing.T) {
	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()

	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = mock.BaseURL()
	cfg.PageLimit = 12
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.FetchPage(context.Background(), 3); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if got := mock.LastQuery["page"]; got != "3" {
		t.Errorf("page = %q, want 3", got)
	}
	if got := mock.LastQuery["limit"]; got != "12" {
		t.Errorf("limit = %q, want 12", got)
	}
	if got := mock.LastQuery["fields"]; got != strings.Join(artwork.Fields, ",") {
		t.Errorf("fields = %q, want %q", got, strings.Join(artwork.Fields, ","))
	}

	headers := mock.LastRequestHeader
	if got := headers.Get("User-Agent"); got != testUserAgent {
		t.Errorf("User-Agent = %q, want %q", got, testUserAgent)
	}
	if got := headers.Get(HeaderAICUserAgent); got != testUserAgent {
		t.Errorf("%s = %q, want %q", HeaderAICUserAgent, got, testUserAgent)
	}
	if got := headers.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
}

func TestFetchPage_InvalidPage(t *testing.T) {
	client := newTestClient(t, DefaultBaseURL, nil)

	if _, err := client.FetchPage(context.Background(), 0); err == nil {
		t.Error("FetchPage(0) expected error, got nil")
	}
}

func TestFetchPage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		response      testutil.MockResponse
		expectedClass ErrorClass
		expectedCode  int
	}{
		{"not found", testutil.NewNotFoundResponse(), ErrorClassClient, 404},
		{"server error", testutil.NewServerErrorResponse(), ErrorClassServer, 500},
		{"too many requests", testutil.NewRateLimitResponse(), ErrorClassRateLimit, 429},
		{"malformed body", testutil.NewMalformedResponse(), ErrorClassDecode, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockArtic(30, 12)
			defer mock.Close()
			mock.SetResponse("/artworks", tt.response)

			client := newTestClient(t, mock.BaseURL(), nil)

			_, err := client.FetchPage(context.Background(), 1)
			if err == nil {
				t.Fatal("FetchPage() expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %v is not an *APIError", err)
			}
			if apiErr.ErrorClass != tt.expectedClass {
				t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, tt.expectedClass)
			}
			if apiErr.StatusCode != tt.expectedCode {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.expectedCode)
			}
			if mock.GetRequestCount() != 1 {
				t.Errorf("request count = %d, want 1 (no retry)", mock.GetRequestCount())
			}
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := newTestClient(t, baseURL, nil)

	_, err := client.Get(context.Background(), "/artworks", nil)
	if err == nil {
		t.Fatal("Get() expected error, got nil")
	}
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf() = %q, want %q", ClassOf(err), ErrorClassNetwork)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()
	mock.SetResponse("/artworks", testutil.MockResponse{StatusCode: http.StatusOK, Delay: 5 * time.Second})

	client := newTestClient(t, mock.BaseURL(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchPage(ctx, 1)
	if err == nil {
		t.Fatal("FetchPage() expected error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded in chain", err)
	}
}

func TestDo_RateLimitBlock(t *testing.T) {
	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()
	mock.SetResponse("/artworks", testutil.NewRateLimitResponse())

	client := newTestClient(t, mock.BaseURL(), nil)
	ctx := context.Background()

	// The 429 reports zero remaining, so the next call is blocked locally.
	if _, err := client.FetchPage(ctx, 1); ClassOf(err) != ErrorClassRateLimit {
		t.Fatalf("first call class = %q, want %q", ClassOf(err), ErrorClassRateLimit)
	}

	_, err := client.FetchPage(ctx, 1)
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("second call error = %v, want ratelimit.ErrRateLimited", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
}

func TestDo_FreshCacheHit(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()

	client := newTestClient(t, mock.BaseURL(), redisClient)
	ctx := context.Background()

	first, err := client.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("first FetchPage() error = %v", err)
	}
	second, err := client.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("second FetchPage() error = %v", err)
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1 (second served from cache)", mock.GetRequestCount())
	}
	if len(first.Records) != len(second.Records) || first.Records[0].ID != second.Records[0].ID {
		t.Error("cached page differs from fetched page")
	}
}

func TestDo_Handle304NotModified(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()
	mock.SetMaxAge(0)

	client := newTestClient(t, mock.BaseURL(), redisClient)
	ctx := context.Background()

	if _, err := client.FetchPage(ctx, 1); err != nil {
		t.Fatalf("first FetchPage() error = %v", err)
	}

	// max-age=0 makes the entry stale at once; the ETag keeps it for revalidation.
	p, err := client.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("second FetchPage() error = %v", err)
	}

	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1", mock.GetConditionalCount())
	}
	if got := mock.Pages(); len(got) != 1 {
		t.Errorf("full bodies served = %v, want only the first", got)
	}
	if len(p.Records) != 12 || p.Records[0].ID != 1 {
		t.Errorf("revalidated page has %d records starting at %d, want 12 from id 1", len(p.Records), p.Records[0].ID)
	}
}

func TestDo_CacheKeyedByQuery(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()

	client := newTestClient(t, mock.BaseURL(), redisClient)
	ctx := context.Background()

	for _, page := range []int{1, 2, 1, 2} {
		if _, err := client.FetchPage(ctx, page); err != nil {
			t.Fatalf("FetchPage(%d) error = %v", page, err)
		}
	}

	if got := mock.Pages(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("pages served = %v, want [1 2]", got)
	}
}

func TestClose_DropsSessionCache(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockArtic(30, 12)
	defer mock.Close()

	client := newTestClient(t, mock.BaseURL(), redisClient)
	ctx := context.Background()

	if _, err := client.FetchPage(ctx, 1); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	key := cache.CacheKey{
		Session:     client.SessionID(),
		Endpoint:    "/api/v1/artworks",
		QueryParams: url.Values{"page": {"1"}, "fields": {strings.Join(artwork.Fields, ",")}},
	}
	if _, err := client.GetCache().Get(ctx, key); err != nil {
		t.Fatalf("cache Get() before Close error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := client.GetCache().Get(ctx, key); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("cache Get() after Close error = %v, want ErrCacheMiss", err)
	}
}

func TestGet(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/api/v1", nil)

	resp, err := client.Get(context.Background(), "/artworks/search", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"status":"ok"}` {
		t.Errorf("body = %q", body)
	}
	if gotPath != "/api/v1/artworks/search" {
		t.Errorf("path = %q, want /api/v1/artworks/search", gotPath)
	}
}
