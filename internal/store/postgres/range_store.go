package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// RangeStore persists confirmed-absent numbers as merged intervals in
// the not_found_ranges table. Merging runs inside a transaction that
// locks the touched rows, so concurrent writers for the same (type,
// year) serialize on the database instead of an in-process mutex.
type RangeStore struct {
	pool  Pool
	clock lawdoc.Clock
}

// NewRangeStore wraps an existing pool.
func NewRangeStore(pool Pool, clock lawdoc.Clock) *RangeStore {
	return &RangeStore{pool: pool, clock: clock}
}

var _ lawdoc.RangeStore = (*RangeStore)(nil)

// RecordAbsent inserts one absent number, merging it into any range it
// overlaps or touches.
func (s *RangeStore) RecordAbsent(ctx context.Context, t lawdoc.DocumentType, year, number int) error {
	return s.RecordAbsentBatch(ctx, []lawdoc.Identifier{{Type: t, Year: year, Number: number}})
}

// RecordAbsentBatch sorts the identifiers ascending and applies them in
// one transaction, so adjacent numbers arriving out of order still merge
// into single ranges.
func (s *RangeStore) RecordAbsentBatch(ctx context.Context, ids []lawdoc.Identifier) error {
	if len(ids) == 0 {
		return nil
	}
	sorted := append([]lawdoc.Identifier(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Number < b.Number
	})

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin range tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range sorted {
		if err := s.mergeInsert(ctx, tx, id.Type, id.Year, id.Number); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit range tx: %w", err)
	}
	return nil
}

// mergeInsert locks every range the number overlaps or touches, replaces
// them with their union, or inserts a singleton when none exist.
func (s *RangeStore) mergeInsert(ctx context.Context, tx pgx.Tx, t lawdoc.DocumentType, year, number int) error {
	rows, err := tx.Query(ctx, `
SELECT id, number_min, number_max
FROM not_found_ranges
WHERE doc_type = $1 AND year = $2 AND number_min <= $3 + 1 AND number_max >= $3 - 1
FOR UPDATE`, t, year, number)
	if err != nil {
		return fmt.Errorf("lock touching ranges: %w", err)
	}

	var (
		touchedIDs []int64
		newMin     = number
		newMax     = number
	)
	for rows.Next() {
		var id int64
		var lo, hi int
		if err := rows.Scan(&id, &lo, &hi); err != nil {
			rows.Close()
			return fmt.Errorf("scan touching range: %w", err)
		}
		touchedIDs = append(touchedIDs, id)
		if lo < newMin {
			newMin = lo
		}
		if hi > newMax {
			newMax = hi
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate touching ranges: %w", err)
	}

	if len(touchedIDs) == 1 && newMin < number && number < newMax {
		// Fully inside an existing range, nothing to write.
		return nil
	}
	if len(touchedIDs) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM not_found_ranges WHERE id = ANY($1)`, touchedIDs); err != nil {
			return fmt.Errorf("delete superseded ranges: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO not_found_ranges (doc_type, year, number_min, number_max, document_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		t, year, newMin, newMax, newMax-newMin+1, s.clock.Now(),
	); err != nil {
		return fmt.Errorf("insert merged range: %w", err)
	}
	return nil
}

// IsAbsent reports whether the number falls inside a recorded range.
func (s *RangeStore) IsAbsent(ctx context.Context, t lawdoc.DocumentType, year, number int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM not_found_ranges
	WHERE doc_type = $1 AND year = $2 AND number_min <= $3 AND number_max >= $3
)`, t, year, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check absent: %w", err)
	}
	return exists, nil
}

// Consolidate merges ranges left adjacent or overlapping by concurrent
// writers and returns the number of ranges merged away.
func (s *RangeStore) Consolidate(ctx context.Context, t lawdoc.DocumentType, year int) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin consolidate tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT number_min, number_max
FROM not_found_ranges
WHERE doc_type = $1 AND year = $2
ORDER BY number_min
FOR UPDATE`, t, year)
	if err != nil {
		return 0, fmt.Errorf("lock year ranges: %w", err)
	}
	current, err := scanBounds(rows)
	if err != nil {
		return 0, err
	}

	merged := mergeBounds(current)
	removed := len(current) - len(merged)
	if removed == 0 {
		return 0, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM not_found_ranges WHERE doc_type = $1 AND year = $2`, t, year); err != nil {
		return 0, fmt.Errorf("clear year ranges: %w", err)
	}
	now := s.clock.Now()
	for _, b := range merged {
		if _, err := tx.Exec(ctx, `
INSERT INTO not_found_ranges (doc_type, year, number_min, number_max, document_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			t, year, b.lo, b.hi, b.hi-b.lo+1, now,
		); err != nil {
			return 0, fmt.Errorf("insert consolidated range: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit consolidate tx: %w", err)
	}
	return removed, nil
}

// Ranges returns the recorded ranges for a (type, year), ascending.
func (s *RangeStore) Ranges(ctx context.Context, t lawdoc.DocumentType, year int) ([]lawdoc.NotFoundRange, error) {
	rows, err := s.pool.Query(ctx, `
SELECT doc_type, year, number_min, number_max, document_count
FROM not_found_ranges
WHERE doc_type = $1 AND year = $2
ORDER BY number_min`, t, year)
	if err != nil {
		return nil, fmt.Errorf("query ranges: %w", err)
	}
	defer rows.Close()

	var out []lawdoc.NotFoundRange
	for rows.Next() {
		var r lawdoc.NotFoundRange
		if err := rows.Scan(&r.Type, &r.Year, &r.NumberMin, &r.NumberMax, &r.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan range: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranges: %w", err)
	}
	return out, nil
}

type bounds struct {
	lo, hi int
}

func scanBounds(rows pgx.Rows) ([]bounds, error) {
	defer rows.Close()
	var out []bounds
	for rows.Next() {
		var b bounds
		if err := rows.Scan(&b.lo, &b.hi); err != nil {
			return nil, fmt.Errorf("scan bounds: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bounds: %w", err)
	}
	return out, nil
}

// mergeBounds merges sorted intervals that overlap or are adjacent.
func mergeBounds(in []bounds) []bounds {
	if len(in) == 0 {
		return nil
	}
	out := []bounds{in[0]}
	for _, b := range in[1:] {
		last := &out[len(out)-1]
		if b.lo <= last.hi+1 {
			if b.hi > last.hi {
				last.hi = b.hi
			}
			continue
		}
		out = append(out, b)
	}
	return out
}
