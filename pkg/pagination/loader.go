package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Loader fills the display window from remote pages.
type Loader struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewLoader creates a new lazy page loader.
func NewLoader(fetcher PageFetcher, config Config) *Loader {
	return &Loader{
		fetcher: fetcher,
		config:  config.withDefaults(),
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// LoadPage fetches remotePage into st.
//
// With rowsStillNeeded == 0 the displayed records are replaced by the page.
// With rowsStillNeeded > 0 every fetched page is appended and further pages
// are fetched according to the configured ContinuationPolicy.
//
// On failure the error is logged and returned; st keeps whatever was
// written before the failure.
func (l *Loader) LoadPage(ctx context.Context, st *State, remotePage, rowsStillNeeded int) error {
	if rowsStillNeeded < 0 {
		rowsStillNeeded = 0
	}
	return l.load(ctx, st, remotePage, rowsStillNeeded, rowsStillNeeded == 0, window{})
}

// LoadWindow replaces the displayed records with the display window
// [first, first+rows) of a collection served pageSize records per remote
// page. The window may start inside a remote page and span several; the
// continuation policy decides how many are fetched.
func (l *Loader) LoadWindow(ctx context.Context, st *State, first, rows, pageSize int) error {
	if rows <= 0 {
		rows = l.config.DisplayPageSize
	}
	if pageSize <= 0 {
		pageSize = rows
	}
	if first < 0 {
		first = 0
	}

	page := PageForOffset(first, pageSize)
	skip := first - (page-1)*pageSize
	return l.load(ctx, st, page, skip+rows, true, window{skip: skip, rows: rows})
}

// window trims the records a load writes: skip records are dropped from the
// first page and at most rows are kept. rows == 0 keeps everything.
type window struct {
	skip int
	rows int
}

func (w window) trim(records []artwork.Record, firstPage bool, kept int) []artwork.Record {
	if firstPage {
		records = records[min(w.skip, len(records)):]
	}
	if w.rows > 0 {
		records = records[:min(len(records), max(w.rows-kept, 0))]
	}
	return records
}

func (l *Loader) load(ctx context.Context, st *State, remotePage, needed int, fresh bool, w window) error {
	if remotePage < 1 {
		remotePage = 1
	}

	tok := st.Begin()
	page := remotePage
	remaining := needed
	received := 0
	kept := 0

	for {
		p, err := fetchPage(ctx, l.fetcher, l.config.Timeout, page)
		if errors.Is(err, context.Canceled) {
			l.logger.Debug().Int("page", page).Msg("Page load cancelled")
			return fmt.Errorf("load page %d: %w", page, err)
		}
		if err != nil {
			fetchFailuresTotal.WithLabelValues(opLazy).Inc()
			l.logger.Error().
				Err(err).
				Int("page", page).
				Int("rows_still_needed", remaining).
				Msg("Error fetching artworks")
			return fmt.Errorf("load page %d: %w", page, err)
		}
		pagesFetchedTotal.WithLabelValues(opLazy).Inc()

		records := artwork.NormalizeAll(p.Records)
		received += len(records)
		records = w.trim(records, page == remotePage, kept)
		kept += len(records)

		if fresh && page == remotePage {
			err = st.replace(tok, records, p.Pagination)
		} else {
			err = st.appendPage(tok, records, p.Pagination)
		}
		if err != nil {
			if errors.Is(err, ErrSuperseded) {
				supersededTotal.WithLabelValues(opLazy).Inc()
				l.logger.Debug().Int("page", page).Msg("Page load superseded")
			}
			return err
		}

		l.logger.Debug().
			Int("page", page).
			Int("records", len(records)).
			Int("total", p.Pagination.Total).
			Msg("Page loaded")

		if !l.shouldContinue(p, needed, received, remaining) {
			return nil
		}

		page++
		remaining -= l.config.DisplayPageSize
	}
}

// shouldContinue evaluates the continuation predicate after a page.
func (l *Loader) shouldContinue(p *artwork.Page, needed, received, remaining int) bool {
	if needed == 0 {
		return false
	}

	switch l.config.Policy {
	case ContinueOnDisplayPage:
		return remaining > l.config.DisplayPageSize
	default:
		return received < needed && p.Full()
	}
}
