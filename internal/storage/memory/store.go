// Package memory stores artifact content in-memory for tests and
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/storage"
)

// Store keeps artifacts in a map and returns pseudo URIs.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates a new in-memory artifact store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

var _ lawdoc.ArtifactStore = (*Store)(nil)

// Exists reports whether the artifact was saved.
func (s *Store) Exists(_ context.Context, kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string) (bool, error) {
	path, err := storage.ObjectPath(kind, t, documentID)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[path]
	return ok, nil
}

// Save persists the content and returns a memory:// URI.
func (s *Store) Save(_ context.Context, kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string, data []byte) (string, error) {
	path, err := storage.ObjectPath(kind, t, documentID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Read returns the saved content.
func (s *Store) Read(_ context.Context, kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string) ([]byte, error) {
	path, err := storage.ObjectPath(kind, t, documentID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", path)
	}
	return append([]byte(nil), data...), nil
}
