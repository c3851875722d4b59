// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// FoundStore keeps discovery records in a map keyed by document ID.
type FoundStore struct {
	mu   sync.RWMutex
	recs map[string]lawdoc.FoundRecord
}

// NewFoundStore constructs a FoundStore.
func NewFoundStore() *FoundStore {
	return &FoundStore{recs: make(map[string]lawdoc.FoundRecord)}
}

var _ lawdoc.FoundStore = (*FoundStore)(nil)

// Insert adds a record unless one already exists for the same document.
func (s *FoundStore) Insert(_ context.Context, rec lawdoc.FoundRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recs[rec.DocumentID]; exists {
		return false, nil
	}
	s.recs[rec.DocumentID] = rec
	return true, nil
}

// Get fetches a record by document ID.
func (s *FoundStore) Get(_ context.Context, documentID string) (lawdoc.FoundRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[documentID]
	return rec, ok, nil
}

// IDs returns known document IDs for a type, optionally filtered by year.
func (s *FoundStore) IDs(_ context.Context, t lawdoc.DocumentType, year int) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{})
	for id, rec := range s.recs {
		if rec.Type != t {
			continue
		}
		if year > 0 && rec.Year != year {
			continue
		}
		out[id] = struct{}{}
	}
	return out, nil
}

// UpdateStage mutates the pipeline fields of an existing record.
func (s *FoundStore) UpdateStage(_ context.Context, documentID string, stage lawdoc.Stage, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[documentID]
	if !ok {
		return fmt.Errorf("found record %q does not exist", documentID)
	}
	rec.Stage = stage
	rec.LastError = errText
	s.recs[documentID] = rec
	return nil
}

// List returns records matching the filter, ordered by (year, number) desc.
func (s *FoundStore) List(_ context.Context, filter lawdoc.FoundFilter) ([]lawdoc.FoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []lawdoc.FoundRecord
	for _, rec := range s.recs {
		if filter.Type != "" && rec.Type != filter.Type {
			continue
		}
		if filter.Year > 0 && rec.Year != filter.Year {
			continue
		}
		if filter.Stage != "" && rec.Stage != filter.Stage {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Number > out[j].Number
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
