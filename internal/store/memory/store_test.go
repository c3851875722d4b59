package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

func TestCursorStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewCursorStore()

	_, ok, err := s.Load(ctx, "fetch-previous", lawdoc.TypeLoi)
	require.NoError(t, err)
	require.False(t, ok)

	cur := lawdoc.Cursor{
		CursorType:   "fetch-previous",
		DocumentType: lawdoc.TypeLoi,
		Year:         2023,
		Number:       117,
		UpdatedAt:    time.Unix(1700000000, 0),
	}
	require.NoError(t, s.Save(ctx, cur))

	got, ok, err := s.Load(ctx, "fetch-previous", lawdoc.TypeLoi)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cur, got)

	// Upsert replaces the previous position.
	cur.Year, cur.Number = 2023, 116
	require.NoError(t, s.Save(ctx, cur))
	got, _, err = s.Load(ctx, "fetch-previous", lawdoc.TypeLoi)
	require.NoError(t, err)
	require.Equal(t, 116, got.Number)
}

func TestArticleStore_InsertDeleteCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewArticleStore()

	recs := []lawdoc.ArticleRecord{
		{DocumentID: "loi-2025-8", Index: 2, Content: "second"},
		{DocumentID: "loi-2025-8", Index: 1, Content: "first"},
		{DocumentID: "loi-2025-9", Index: 1, Content: "other"},
	}
	require.NoError(t, s.InsertBatch(ctx, recs))

	n, err := s.CountByDocument(ctx, "loi-2025-8")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := s.ListByDocument(ctx, "loi-2025-8")
	require.NoError(t, err)
	require.Equal(t, 1, list[0].Index)
	require.Equal(t, 2, list[1].Index)

	deleted, err := s.DeleteByDocument(ctx, "loi-2025-8")
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	n, err = s.CountByDocument(ctx, "loi-2025-8")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.CountByDocument(ctx, "loi-2025-9")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
