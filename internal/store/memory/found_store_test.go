package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

func rec(id string, t lawdoc.DocumentType, year, number int, stage lawdoc.Stage) lawdoc.FoundRecord {
	return lawdoc.FoundRecord{
		DocumentID:   id,
		Type:         t,
		Year:         year,
		Number:       number,
		URL:          "https://sgg.test/doc/" + id + "/download",
		Stage:        stage,
		DiscoveredAt: time.Unix(1700000000, 0),
	}
}

func TestFoundStore_InsertIsInsertOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewFoundStore()

	inserted, err := s.Insert(ctx, rec("loi-2025-8", lawdoc.TypeLoi, 2025, 8, lawdoc.StageFetched))
	require.NoError(t, err)
	require.True(t, inserted)

	// Re-discovery is a no-op that must not overwrite pipeline state.
	require.NoError(t, s.UpdateStage(ctx, "loi-2025-8", lawdoc.StageDownloaded, ""))
	inserted, err = s.Insert(ctx, rec("loi-2025-8", lawdoc.TypeLoi, 2025, 8, lawdoc.StageFetched))
	require.NoError(t, err)
	require.False(t, inserted)

	got, ok, err := s.Get(ctx, "loi-2025-8")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lawdoc.StageDownloaded, got.Stage)
}

func TestFoundStore_IDsFiltersByTypeAndYear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewFoundStore()
	for _, r := range []lawdoc.FoundRecord{
		rec("loi-2025-1", lawdoc.TypeLoi, 2025, 1, lawdoc.StageFetched),
		rec("loi-2024-9", lawdoc.TypeLoi, 2024, 9, lawdoc.StageFetched),
		rec("decret-2025-1", lawdoc.TypeDecret, 2025, 1, lawdoc.StageFetched),
	} {
		_, err := s.Insert(ctx, r)
		require.NoError(t, err)
	}

	ids, err := s.IDs(ctx, lawdoc.TypeLoi, 2025)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"loi-2025-1": {}}, ids)

	all, err := s.IDs(ctx, lawdoc.TypeLoi, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestFoundStore_ListFilterAndOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewFoundStore()
	for _, r := range []lawdoc.FoundRecord{
		rec("loi-2024-3", lawdoc.TypeLoi, 2024, 3, lawdoc.StageConsolidated),
		rec("loi-2025-1", lawdoc.TypeLoi, 2025, 1, lawdoc.StageFetched),
		rec("loi-2025-4", lawdoc.TypeLoi, 2025, 4, lawdoc.StageFetched),
	} {
		_, err := s.Insert(ctx, r)
		require.NoError(t, err)
	}

	out, err := s.List(ctx, lawdoc.FoundFilter{Type: lawdoc.TypeLoi})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "loi-2025-4", out[0].DocumentID)
	require.Equal(t, "loi-2024-3", out[2].DocumentID)

	out, err = s.List(ctx, lawdoc.FoundFilter{Stage: lawdoc.StageFetched, Limit: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestFoundStore_UpdateStageMissing(t *testing.T) {
	t.Parallel()

	s := NewFoundStore()
	err := s.UpdateStage(context.Background(), "loi-1999-1", lawdoc.StageFailed, "boom")
	require.Error(t, err)
}
