package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// CursorStore persists the resumable scan position, one row per
// (cursor_type, doc_type).
type CursorStore struct {
	pool Pool
}

// NewCursorStore wraps an existing pool.
func NewCursorStore(pool Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

var _ lawdoc.CursorStore = (*CursorStore)(nil)

// Load returns the cursor row, or false when no cursor was saved yet.
func (s *CursorStore) Load(ctx context.Context, cursorType string, t lawdoc.DocumentType) (lawdoc.Cursor, bool, error) {
	cur := lawdoc.Cursor{CursorType: cursorType, DocumentType: t}
	err := s.pool.QueryRow(ctx, `
SELECT year, number, updated_at
FROM scan_cursors
WHERE cursor_type = $1 AND doc_type = $2`, cursorType, t,
	).Scan(&cur.Year, &cur.Number, &cur.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return lawdoc.Cursor{}, false, nil
	}
	if err != nil {
		return lawdoc.Cursor{}, false, fmt.Errorf("load cursor: %w", err)
	}
	return cur, true, nil
}

// Save upserts the cursor row.
func (s *CursorStore) Save(ctx context.Context, cur lawdoc.Cursor) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO scan_cursors (cursor_type, doc_type, year, number, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cursor_type, doc_type)
DO UPDATE SET year = EXCLUDED.year, number = EXCLUDED.number, updated_at = EXCLUDED.updated_at`,
		cur.CursorType, cur.DocumentType, cur.Year, cur.Number, cur.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
