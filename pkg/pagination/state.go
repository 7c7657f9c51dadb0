package pagination

import (
	"errors"
	"sync"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
)

var (
	// ErrSuperseded is returned when a newer operation (or Close) has
	// invalidated the token an operation was started with.
	ErrSuperseded = errors.New("operation superseded")
)

// Token identifies the operation allowed to write to a State.
type Token uint64

// State is the display state owned by one grid.
// All methods are safe for concurrent use.
type State struct {
	mu sync.RWMutex

	records    []artwork.Record
	selected   []artwork.Record
	first      int
	bulkTarget int
	pagination *artwork.Pagination

	generation uint64
	closed     bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Begin starts a new operation and invalidates every earlier token.
func (s *State) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return Token(s.generation)
}

// Current reports whether tok still owns the state.
func (s *State) Current(tok Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && uint64(tok) == s.generation
}

// Close invalidates all tokens permanently. Later writes are dropped.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.generation++
}

// update runs fn under the write lock if tok is still current.
func (s *State) update(tok Token, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || uint64(tok) != s.generation {
		return ErrSuperseded
	}
	fn()
	return nil
}

// replace swaps in a page of records and its metadata.
func (s *State) replace(tok Token, records []artwork.Record, meta artwork.Pagination) error {
	return s.update(tok, func() {
		s.records = records
		s.pagination = &meta
	})
}

// appendPage extends the displayed records with a continuation page.
func (s *State) appendPage(tok Token, records []artwork.Record, meta artwork.Pagination) error {
	return s.update(tok, func() {
		merged := make([]artwork.Record, 0, len(s.records)+len(records))
		merged = append(merged, s.records...)
		merged = append(merged, records...)
		s.records = merged
		s.pagination = &meta
	})
}

// replaceSelected installs a bulk crawl result and selects its first n records.
func (s *State) replaceSelected(tok Token, records []artwork.Record, n int, meta *artwork.Pagination) error {
	if n > len(records) {
		n = len(records)
	}
	return s.update(tok, func() {
		s.records = records
		s.selected = append([]artwork.Record(nil), records[:n]...)
		s.first = 0
		if meta != nil {
			m := *meta
			s.pagination = &m
		}
	})
}

// SetSelection stores the grid's selection verbatim.
func (s *State) SetSelection(selected []artwork.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append([]artwork.Record(nil), selected...)
}

// ToggleSelected removes the record with id from the selection, or adds
// the displayed record with that id. Unknown ids are ignored.
func (s *State) ToggleSelected(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.selected {
		if r.ID == id {
			s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
			return
		}
	}
	for _, r := range s.records {
		if r.ID == id {
			s.selected = append(s.selected, r)
			return
		}
	}
}

// SetFirst stores the display-window start offset.
func (s *State) SetFirst(first int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.first = first
}

// SetBulkTarget stores the pending bulk-selection count.
func (s *State) SetBulkTarget(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkTarget = n
}

// Records returns a copy of the displayed records.
func (s *State) Records() []artwork.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]artwork.Record(nil), s.records...)
}

// Selected returns a copy of the selected records.
func (s *State) Selected() []artwork.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]artwork.Record(nil), s.selected...)
}

// First returns the display-window start offset.
func (s *State) First() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.first
}

// BulkTarget returns the pending bulk-selection count.
func (s *State) BulkTarget() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bulkTarget
}

// Pagination returns a copy of the latest metadata, or nil before the
// first successful fetch.
func (s *State) Pagination() *artwork.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pagination == nil {
		return nil
	}
	p := *s.pagination
	return &p
}

// Total returns the collection size reported by the latest fetch, or 0.
func (s *State) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pagination == nil {
		return 0
	}
	return s.pagination.Total
}
