package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// ArticleStore keeps consolidated article rows keyed by document ID.
type ArticleStore struct {
	mu   sync.RWMutex
	rows map[string][]lawdoc.ArticleRecord
}

// NewArticleStore constructs an ArticleStore.
func NewArticleStore() *ArticleStore {
	return &ArticleStore{rows: make(map[string][]lawdoc.ArticleRecord)}
}

var _ lawdoc.ArticleStore = (*ArticleStore)(nil)

// InsertBatch appends article rows.
func (s *ArticleStore) InsertBatch(_ context.Context, recs []lawdoc.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.rows[rec.DocumentID] = append(s.rows[rec.DocumentID], rec)
	}
	return nil
}

// DeleteByDocument removes all rows for a document and returns the count.
func (s *ArticleStore) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.rows[documentID]))
	delete(s.rows, documentID)
	return n, nil
}

// CountByDocument returns the number of rows stored for a document.
func (s *ArticleStore) CountByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[documentID]), nil
}

// ListByDocument returns the rows for a document ordered by article index.
func (s *ArticleStore) ListByDocument(_ context.Context, documentID string) ([]lawdoc.ArticleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]lawdoc.ArticleRecord, len(s.rows[documentID]))
	copy(out, s.rows[documentID])
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
