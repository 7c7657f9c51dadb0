// Package testutil provides testing utilities for the artworks grid.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// APIPrefix is the path prefix of the mock API.
const APIPrefix = "/api/v1"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockArtic is a configurable mock artworks API server for testing.
// By default it serves /api/v1/artworks?page=N from a Source.
type MockArtic struct {
	server   *httptest.Server
	source   *Source
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	maxAge   int

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	LastQuery         map[string]string
	pages             []int
}

// NewMockArtic creates a mock API serving total records, limit per page.
func NewMockArtic(total, limit int) *MockArtic {
	mock := &MockArtic{
		source:   NewSource(total, limit),
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		maxAge:   300,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := make(map[string]string)
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = query
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.artworksHandler(w, r)
	}))

	return mock
}

// BaseURL returns the API base URL of the mock server.
func (m *MockArtic) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Source returns the collection behind the default handler.
func (m *MockArtic) Source() *Source {
	return m.source
}

// Close shuts down the mock server.
func (m *MockArtic) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockArtic) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
	m.pages = nil
}

// SetMaxAge sets the Cache-Control max-age of page responses in seconds.
func (m *MockArtic) SetMaxAge(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAge = seconds
}

// SetHandler sets a custom handler for a path below APIPrefix.
func (m *MockArtic) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[APIPrefix+path] = handler
}

// SetResponse configures a simple response for a path below APIPrefix.
func (m *MockArtic) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockArtic) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockArtic) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// Pages returns the page numbers served with a full body, in order.
func (m *MockArtic) Pages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.pages...)
}

// PageETag is the entity tag the mock assigns to a page.
func PageETag(page int) string {
	return fmt.Sprintf(`"page-%d"`, page)
}

// artworksHandler serves pages of the Source as the API does.
func (m *MockArtic) artworksHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != APIPrefix+"/artworks" {
		http.NotFound(w, r)
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":400,"error":"Invalid page"}`))
			return
		}
		page = n
	}

	m.mu.RLock()
	maxAge := m.maxAge
	m.mu.RUnlock()

	etag := PageETag(page)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
	w.Header().Set("X-RateLimit-Limit", "60")
	w.Header().Set("X-RateLimit-Remaining", "59")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	p, err := m.source.FetchPage(r.Context(), page)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":500,"error":"Internal server error"}`))
		return
	}

	body, err := json.Marshal(p)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	m.mu.Lock()
	m.pages = append(m.pages, page)
	m.mu.Unlock()

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":429,"error":"Too Many Requests"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status":500,"error":"Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status":404,"error":"Not found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not a page.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data": "not a list"`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}
