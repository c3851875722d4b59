package memory

import (
	"context"
	"sync"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

type cursorKey struct {
	cursorType string
	docType    lawdoc.DocumentType
}

// CursorStore keeps scan cursors in a map.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[cursorKey]lawdoc.Cursor
}

// NewCursorStore constructs a CursorStore.
func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[cursorKey]lawdoc.Cursor)}
}

var _ lawdoc.CursorStore = (*CursorStore)(nil)

// Load fetches the cursor for (cursorType, documentType).
func (s *CursorStore) Load(_ context.Context, cursorType string, t lawdoc.DocumentType) (lawdoc.Cursor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.cursors[cursorKey{cursorType, t}]
	return cur, ok, nil
}

// Save upserts the cursor row.
func (s *CursorStore) Save(_ context.Context, cur lawdoc.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[cursorKey{cur.CursorType, cur.DocumentType}] = cur
	return nil
}
