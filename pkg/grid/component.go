// Package grid routes the events of a paginated artworks table (mount,
// page change, selection change, bulk-select overlay, unmount) to the lazy
// page loader and the bulk range fetcher, and exposes a View for rendering.
package grid

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/Sternrassler/artic-grid/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds component configuration.
type Config struct {
	Pagination pagination.Config
}

// DefaultConfig returns the default component configuration.
func DefaultConfig() Config {
	return Config{Pagination: pagination.DefaultConfig()}
}

// View is what a renderer needs to draw the grid.
type View struct {
	Records     []artwork.Record
	Selected    []artwork.Record
	Total       int
	First       int
	PageSize    int
	Loading     bool
	OverlayOpen bool
	BulkTarget  int
	BulkMax     int
	Err         error
}

// Component owns the display state of one grid.
type Component struct {
	state  *pagination.State
	loader *pagination.Loader
	bulk   *pagination.BulkFetcher
	config Config
	logger zerolog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	inflight int
	overlay  bool
	lastErr  error
}

// New creates a component fetching pages through fetcher.
func New(fetcher pagination.PageFetcher, cfg Config) *Component {
	if cfg.Pagination.DisplayPageSize <= 0 {
		cfg.Pagination.DisplayPageSize = pagination.DefaultDisplayPageSize
	}
	return &Component{
		state:  pagination.NewState(),
		loader: pagination.NewLoader(fetcher, cfg.Pagination),
		bulk:   pagination.NewBulkFetcher(fetcher, cfg.Pagination),
		config: cfg,
		logger: log.With().Str("component", "grid").Logger(),
	}
}

// start cancels the previous operation and derives a context for a new one.
// The returned done func must be called when the operation ends.
func (c *Component) start(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.inflight++
	c.mu.Unlock()

	return opCtx, func() {
		c.mu.Lock()
		c.inflight--
		c.mu.Unlock()
		cancel()
	}
}

// superseded reports whether err only says a newer operation took over.
func superseded(parent, op context.Context, err error) bool {
	if errors.Is(err, pagination.ErrSuperseded) {
		return true
	}
	return op.Err() != nil && parent.Err() == nil && errors.Is(err, context.Canceled)
}

func (c *Component) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

// Mount loads the first remote page into the empty grid.
func (c *Component) Mount(ctx context.Context) error {
	opCtx, done := c.start(ctx)
	defer done()

	err := c.loader.LoadPage(opCtx, c.state, 1, 0)
	if err != nil && superseded(ctx, opCtx, err) {
		return nil
	}
	c.setErr(err)
	return err
}

// OnPageChange handles the grid moving its window to first with rows rows
// per page. The window is filled from remote pages of the size the API last
// reported, so it may start inside a remote page or span several.
// Fetch errors are logged and kept for the View, not returned.
func (c *Component) OnPageChange(ctx context.Context, first, rows int) {
	if rows <= 0 {
		rows = c.config.Pagination.DisplayPageSize
	}
	pageSize := rows
	if p := c.state.Pagination(); p != nil && p.Limit > 0 {
		pageSize = p.Limit
	}
	c.state.SetFirst(first)

	opCtx, done := c.start(ctx)
	defer done()

	err := c.loader.LoadWindow(opCtx, c.state, first, rows, pageSize)
	if err != nil && superseded(ctx, opCtx, err) {
		return
	}
	if err != nil {
		c.logger.Debug().Err(err).Int("first", first).Int("page_size", pageSize).Msg("Page change failed")
	}
	c.setErr(err)
}

// OnSelectionChange stores the grid's selection verbatim.
func (c *Component) OnSelectionChange(selected []artwork.Record) {
	c.state.SetSelection(selected)
}

// ToggleSelection adds the displayed record with id to the selection, or
// removes it when already selected. Unknown ids are ignored.
func (c *Component) ToggleSelection(id int) {
	c.state.ToggleSelected(id)
}

// OpenOverlay shows the bulk-select overlay.
func (c *Component) OpenOverlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = true
}

// CloseOverlay hides the bulk-select overlay.
func (c *Component) CloseOverlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = false
}

// OverlayOpen reports whether the overlay is shown.
func (c *Component) OverlayOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay
}

// SetBulkInput stores the overlay's raw input as the pending bulk target.
// Anything that is not an integer counts as 0.
func (c *Component) SetBulkInput(raw string) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		n = 0
	}
	c.state.SetBulkTarget(n)
}

// BulkInputMax is the advisory maximum for the overlay input: the
// collection total when known, otherwise the display page size.
func (c *Component) BulkInputMax() int {
	if total := c.state.Total(); total > 0 {
		return total
	}
	return c.config.Pagination.DisplayPageSize
}

// SubmitBulk selects the first pending-target records of the collection.
// The overlay is closed whatever the outcome; a zero target is a no-op.
func (c *Component) SubmitBulk(ctx context.Context) error {
	defer c.CloseOverlay()

	target := c.state.BulkTarget()
	if target <= 0 {
		return nil
	}

	opCtx, done := c.start(ctx)
	defer done()

	err := c.bulk.CollectFirstN(opCtx, c.state, target)
	if err != nil && superseded(ctx, opCtx, err) {
		return nil
	}
	c.setErr(err)
	return err
}

// Snapshot returns a copy of everything the renderer needs.
func (c *Component) Snapshot() View {
	c.mu.Lock()
	loading := c.inflight > 0
	overlay := c.overlay
	lastErr := c.lastErr
	c.mu.Unlock()

	return View{
		Records:     c.state.Records(),
		Selected:    c.state.Selected(),
		Total:       c.state.Total(),
		First:       c.state.First(),
		PageSize:    c.config.Pagination.DisplayPageSize,
		Loading:     loading,
		OverlayOpen: overlay,
		BulkTarget:  c.state.BulkTarget(),
		BulkMax:     c.BulkInputMax(),
		Err:         lastErr,
	}
}

// Unmount cancels in-flight work and discards any result arriving later.
func (c *Component) Unmount() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.state.Close()
}
