package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// ArticleStore persists consolidated article rows in law_articles.
type ArticleStore struct {
	pool Pool
}

// NewArticleStore wraps an existing pool.
func NewArticleStore(pool Pool) *ArticleStore {
	return &ArticleStore{pool: pool}
}

var _ lawdoc.ArticleStore = (*ArticleStore)(nil)

// InsertBatch writes all rows in one statement.
func (s *ArticleStore) InsertBatch(ctx context.Context, recs []lawdoc.ArticleRecord) error {
	if len(recs) == 0 {
		return nil
	}
	builder := psql.Insert("law_articles").Columns(
		"document_id", "article_index", "title", "content", "confidence",
		"doc_type", "year", "number", "source_url", "extracted_at",
	)
	for _, rec := range recs {
		builder = builder.Values(
			rec.DocumentID, rec.Index, rec.Title, rec.Content, rec.Confidence,
			rec.Type, rec.Year, rec.Number, rec.SourceURL, rec.ExtractedAt,
		)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build article insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert articles: %w", err)
	}
	return nil
}

// DeleteByDocument removes every article row for the document and returns
// the number of rows deleted.
func (s *ArticleStore) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM law_articles WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete articles for %s: %w", documentID, err)
	}
	return tag.RowsAffected(), nil
}

// CountByDocument returns the number of article rows for the document.
func (s *ArticleStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM law_articles WHERE document_id = $1`, documentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count articles for %s: %w", documentID, err)
	}
	return count, nil
}

// ListByDocument returns the document's articles ordered by index.
func (s *ArticleStore) ListByDocument(ctx context.Context, documentID string) ([]lawdoc.ArticleRecord, error) {
	query, args, err := psql.Select(
		"document_id", "article_index", "title", "content", "confidence",
		"doc_type", "year", "number", "source_url", "extracted_at",
	).From("law_articles").
		Where(sq.Eq{"document_id": documentID}).
		OrderBy("article_index ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article list: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles for %s: %w", documentID, err)
	}
	defer rows.Close()

	var recs []lawdoc.ArticleRecord
	for rows.Next() {
		var rec lawdoc.ArticleRecord
		if err := rows.Scan(
			&rec.DocumentID, &rec.Index, &rec.Title, &rec.Content, &rec.Confidence,
			&rec.Type, &rec.Year, &rec.Number, &rec.SourceURL, &rec.ExtractedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return recs, nil
}
