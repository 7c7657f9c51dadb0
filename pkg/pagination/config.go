package pagination

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultDisplayPageSize is the number of rows the grid shows per screen.
const DefaultDisplayPageSize = 12

// Prometheus metrics for fetch orchestration.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_pages_fetched_total",
		Help: "Remote pages fetched by operation",
	}, []string{"operation"})

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_page_fetch_failures_total",
		Help: "Remote page fetches that failed by operation",
	}, []string{"operation"})

	supersededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_operations_superseded_total",
		Help: "Operations whose result was dropped because a newer one started",
	}, []string{"operation"})

	bulkSelectedRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_bulk_selected_rows",
		Help:    "Rows selected per bulk selection",
		Buckets: []float64{1, 12, 24, 50, 100, 250, 500, 1000},
	})
)

// Operation labels.
const (
	opLazy = "lazy"
	opBulk = "bulk"
)

// PageFetcher is the transport the orchestration runs on.
type PageFetcher interface {
	// FetchPage fetches one 1-based remote page.
	FetchPage(ctx context.Context, page int) (*artwork.Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, page int) (*artwork.Page, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc) FetchPage(ctx context.Context, page int) (*artwork.Page, error) {
	return f(ctx, page)
}

// ContinuationPolicy decides when LoadPage fetches the following page.
type ContinuationPolicy int

const (
	// ContinueOnReceived keeps fetching while fewer records than requested
	// have arrived and the last page was full.
	ContinueOnReceived ContinuationPolicy = iota

	// ContinueOnDisplayPage keeps fetching while the remaining demand exceeds
	// the display page size, subtracting one display page per step
	// regardless of how many records actually arrived.
	ContinueOnDisplayPage
)

// String returns the config name of the policy.
func (p ContinuationPolicy) String() string {
	switch p {
	case ContinueOnReceived:
		return "received"
	case ContinueOnDisplayPage:
		return "display-page"
	default:
		return fmt.Sprintf("ContinuationPolicy(%d)", int(p))
	}
}

// ParseContinuationPolicy parses a config name into a policy.
func ParseContinuationPolicy(s string) (ContinuationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "received":
		return ContinueOnReceived, nil
	case "display-page", "display_page":
		return ContinueOnDisplayPage, nil
	default:
		return 0, fmt.Errorf("unknown continuation policy %q", s)
	}
}

// Config holds orchestration settings shared by Loader and BulkFetcher.
type Config struct {
	// DisplayPageSize is the grid's rows per screen page.
	DisplayPageSize int

	// Policy selects the Loader's continuation predicate.
	Policy ContinuationPolicy

	// Timeout bounds each individual page fetch.
	Timeout time.Duration
}

// DefaultConfig returns the grid defaults.
func DefaultConfig() Config {
	return Config{
		DisplayPageSize: DefaultDisplayPageSize,
		Policy:          ContinueOnReceived,
		Timeout:         15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.DisplayPageSize <= 0 {
		c.DisplayPageSize = DefaultDisplayPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// PageForOffset converts a start offset into the 1-based remote page
// holding it, for remote pages of pageSize records.
func PageForOffset(first, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultDisplayPageSize
	}
	if first < 0 {
		first = 0
	}
	return first/pageSize + 1
}

// fetchPage runs one page fetch under the per-page timeout.
func fetchPage(ctx context.Context, fetcher PageFetcher, timeout time.Duration, page int) (*artwork.Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p, err := fetcher.FetchPage(pageCtx, page)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("page %d: empty response", page)
	}
	return p, nil
}
