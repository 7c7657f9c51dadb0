package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
)

// Source is an in-memory paginated artworks collection implementing the
// pagination.PageFetcher contract. Record ids run 1..Total in order.
type Source struct {
	mu       sync.Mutex
	total    int
	limit    int
	calls    []int
	failures map[int]error
	gates    map[int]chan struct{}
}

// NewSource creates a collection of total records served limit per page.
func NewSource(total, limit int) *Source {
	return &Source{
		total:    total,
		limit:    limit,
		failures: make(map[int]error),
		gates:    make(map[int]chan struct{}),
	}
}

// FailOn makes every fetch of page return err.
func (s *Source) FailOn(page int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[page] = err
}

// Hold blocks fetches of page until the returned release func is called
// or the fetch context ends.
func (s *Source) Hold(page int) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gates[page] = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Calls returns the pages requested so far, in order.
func (s *Source) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

// Reset clears the call log.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// FetchPage implements pagination.PageFetcher.
func (s *Source) FetchPage(ctx context.Context, page int) (*artwork.Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, page)
	failure := s.failures[page]
	gate := s.gates[page]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failure != nil {
		return nil, failure
	}

	return s.Page(page), nil
}

// Page builds the page the collection serves for a 1-based page number.
func (s *Source) Page(page int) *artwork.Page {
	offset := (page - 1) * s.limit
	totalPages := (s.total + s.limit - 1) / s.limit

	var records []artwork.RawRecord
	for id := offset + 1; id <= offset+s.limit && id <= s.total; id++ {
		records = append(records, RawArtwork(id))
	}

	meta := artwork.Pagination{
		Total:       s.total,
		Limit:       s.limit,
		Offset:      offset,
		TotalPages:  totalPages,
		CurrentPage: page,
	}
	if page < totalPages {
		next := fmt.Sprintf("https://api.artic.edu/api/v1/artworks?page=%d", page+1)
		meta.NextURL = &next
	}

	return &artwork.Page{Records: records, Pagination: meta}
}

// RawArtwork returns a deterministic raw record. Every third record lacks
// an artist and every fifth lacks inscriptions.
func RawArtwork(id int) artwork.RawRecord {
	raw := artwork.RawRecord{
		ID:            id,
		Title:         artwork.NewText(fmt.Sprintf("Artwork %d", id)),
		PlaceOfOrigin: artwork.NewText("Chicago"),
		ArtistDisplay: artwork.NewText(fmt.Sprintf("Artist %d", id)),
		Inscriptions:  artwork.NewText("signed"),
		DateStart:     artwork.NewText(fmt.Sprintf("%d", 1800+id%200)),
		DateEnd:       artwork.NewText(fmt.Sprintf("%d", 1810+id%200)),
	}
	if id%3 == 0 {
		raw.ArtistDisplay = artwork.Text{}
	}
	if id%5 == 0 {
		raw.Inscriptions = artwork.Text{}
	}
	return raw
}
