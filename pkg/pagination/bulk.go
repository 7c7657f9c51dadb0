package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BulkFetcher collects the first N records of the collection across as
// many remote pages as needed.
type BulkFetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewBulkFetcher creates a new bulk range fetcher.
func NewBulkFetcher(fetcher PageFetcher, config Config) *BulkFetcher {
	return &BulkFetcher{
		fetcher: fetcher,
		config:  config.withDefaults(),
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// Collect crawls remote pages from page 1 and returns the accumulated
// records in fetch order together with the last page's metadata.
// The crawl stops once target records are held or a page comes back short.
// A non-positive target is a no-op.
func (b *BulkFetcher) Collect(ctx context.Context, target int) ([]artwork.Record, *artwork.Pagination, error) {
	return b.collect(ctx, target, func() bool { return true })
}

func (b *BulkFetcher) collect(ctx context.Context, target int, current func() bool) ([]artwork.Record, *artwork.Pagination, error) {
	if target <= 0 {
		return nil, nil, nil
	}

	start := time.Now()
	var acc []artwork.Record
	var meta artwork.Pagination

	for page := 1; ; page++ {
		if !current() {
			supersededTotal.WithLabelValues(opBulk).Inc()
			return nil, nil, ErrSuperseded
		}

		p, err := fetchPage(ctx, b.fetcher, b.config.Timeout, page)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				fetchFailuresTotal.WithLabelValues(opBulk).Inc()
			}
			return nil, nil, fmt.Errorf("collect page %d: %w", page, err)
		}
		pagesFetchedTotal.WithLabelValues(opBulk).Inc()

		acc = append(acc, artwork.NormalizeAll(p.Records)...)
		meta = p.Pagination

		b.logger.Debug().
			Int("page", page).
			Int("records", len(p.Records)).
			Int("accumulated", len(acc)).
			Int("target", target).
			Msg("Bulk page collected")

		if len(acc) >= target || !p.Full() {
			b.logger.Info().
				Int("pages", page).
				Int("accumulated", len(acc)).
				Int("target", target).
				Dur("duration", time.Since(start)).
				Msg("Bulk collection complete")
			return acc, &meta, nil
		}
	}
}

// CollectFirstN crawls for target records, then replaces the displayed
// records with the crawl and selects its first target records (all of
// them when the source held fewer). On error st is left untouched.
func (b *BulkFetcher) CollectFirstN(ctx context.Context, st *State, target int) error {
	if target <= 0 {
		return nil
	}

	tok := st.Begin()
	acc, meta, err := b.collect(ctx, target, func() bool { return st.Current(tok) })
	if err != nil {
		if !errors.Is(err, ErrSuperseded) && !errors.Is(err, context.Canceled) {
			b.logger.Error().Err(err).Int("target", target).Msg("Bulk selection failed")
		}
		return err
	}

	if err := st.replaceSelected(tok, acc, target, meta); err != nil {
		supersededTotal.WithLabelValues(opBulk).Inc()
		return err
	}

	selected := min(target, len(acc))
	bulkSelectedRows.Observe(float64(selected))
	b.logger.Info().
		Int("target", target).
		Int("selected", selected).
		Int("displayed", len(acc)).
		Msg("Bulk selection applied")

	return nil
}
