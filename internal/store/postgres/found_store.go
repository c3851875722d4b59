package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// FoundStore persists discovery records in the found_documents table.
type FoundStore struct {
	pool Pool
}

// NewFoundStore wraps an existing pool.
func NewFoundStore(pool Pool) *FoundStore {
	return &FoundStore{pool: pool}
}

var _ lawdoc.FoundStore = (*FoundStore)(nil)

// Insert adds a discovery record. ON CONFLICT DO NOTHING keeps discovery
// insert-only: re-finding a known document never touches its row.
func (s *FoundStore) Insert(ctx context.Context, rec lawdoc.FoundRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO found_documents (document_id, doc_type, year, number, url, stage, discovered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (document_id) DO NOTHING`,
		rec.DocumentID, rec.Type, rec.Year, rec.Number, rec.URL, rec.Stage, rec.DiscoveredAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert found document: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get loads one record by document ID.
func (s *FoundStore) Get(ctx context.Context, documentID string) (lawdoc.FoundRecord, bool, error) {
	var rec lawdoc.FoundRecord
	err := s.pool.QueryRow(ctx, `
SELECT document_id, doc_type, year, number, url, stage, discovered_at, last_error
FROM found_documents
WHERE document_id = $1`, documentID,
	).Scan(&rec.DocumentID, &rec.Type, &rec.Year, &rec.Number, &rec.URL, &rec.Stage, &rec.DiscoveredAt, &rec.LastError)
	if errors.Is(err, pgx.ErrNoRows) {
		return lawdoc.FoundRecord{}, false, nil
	}
	if err != nil {
		return lawdoc.FoundRecord{}, false, fmt.Errorf("get found document: %w", err)
	}
	return rec, true, nil
}

// IDs returns the known document IDs for a type, optionally limited to
// one year.
func (s *FoundStore) IDs(ctx context.Context, t lawdoc.DocumentType, year int) (map[string]struct{}, error) {
	builder := psql.Select("document_id").From("found_documents").Where(sq.Eq{"doc_type": t})
	if year > 0 {
		builder = builder.Where(sq.Eq{"year": year})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ids query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query found ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan found id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate found ids: %w", err)
	}
	return ids, nil
}

// UpdateStage moves a document to the given stage and records the error
// text (empty on success paths).
func (s *FoundStore) UpdateStage(ctx context.Context, documentID string, stage lawdoc.Stage, errText string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE found_documents SET stage = $2, last_error = $3 WHERE document_id = $1`,
		documentID, stage, errText,
	)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found", documentID)
	}
	return nil
}

// List returns records matching the filter, newest first.
func (s *FoundStore) List(ctx context.Context, filter lawdoc.FoundFilter) ([]lawdoc.FoundRecord, error) {
	builder := psql.
		Select("document_id", "doc_type", "year", "number", "url", "stage", "discovered_at", "last_error").
		From("found_documents").
		OrderBy("year DESC", "number DESC")
	if filter.Type != "" {
		builder = builder.Where(sq.Eq{"doc_type": filter.Type})
	}
	if filter.Year > 0 {
		builder = builder.Where(sq.Eq{"year": filter.Year})
	}
	if filter.Stage != "" {
		builder = builder.Where(sq.Eq{"stage": filter.Stage})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query found documents: %w", err)
	}
	defer rows.Close()

	var out []lawdoc.FoundRecord
	for rows.Next() {
		var rec lawdoc.FoundRecord
		if err := rows.Scan(&rec.DocumentID, &rec.Type, &rec.Year, &rec.Number, &rec.URL, &rec.Stage, &rec.DiscoveredAt, &rec.LastError); err != nil {
			return nil, fmt.Errorf("scan found document: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate found documents: %w", err)
	}
	return out, nil
}
