package memory

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newRangeStore() *RangeStore {
	return NewRangeStore(fixedClock{now: time.Unix(1700000000, 0)})
}

func requireInvariants(t *testing.T, ranges []lawdoc.NotFoundRange) {
	t.Helper()
	for i, r := range ranges {
		require.LessOrEqual(t, r.NumberMin, r.NumberMax)
		require.Equal(t, r.NumberMax-r.NumberMin+1, r.DocumentCount,
			"documentCount must equal max-min+1 for %s", r)
		if i > 0 {
			require.GreaterOrEqual(t, r.NumberMin-ranges[i-1].NumberMax, 2,
				"ranges %s and %s are overlapping or adjacent", ranges[i-1], r)
		}
	}
}

func TestRecordAbsent_GapFillMergesToOneRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	orders := [][]int{
		{5, 7, 6},
		{5, 6, 7},
		{7, 5, 6},
		{6, 5, 7},
		{7, 6, 5},
		{6, 7, 5},
	}
	for _, order := range orders {
		s := newRangeStore()
		for _, n := range order {
			require.NoError(t, s.RecordAbsent(ctx, lawdoc.TypeLoi, 2025, n))
		}
		ranges, err := s.Ranges(ctx, lawdoc.TypeLoi, 2025)
		require.NoError(t, err)
		require.Len(t, ranges, 1, "order %v", order)
		require.Equal(t, 5, ranges[0].NumberMin)
		require.Equal(t, 7, ranges[0].NumberMax)
		require.Equal(t, 3, ranges[0].DocumentCount)
	}
}

func TestRecordAbsent_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newRangeStore()
	require.NoError(t, s.RecordAbsent(ctx, lawdoc.TypeLoi, 2025, 12))
	require.NoError(t, s.RecordAbsent(ctx, lawdoc.TypeLoi, 2025, 12))

	ranges, err := s.Ranges(ctx, lawdoc.TypeLoi, 2025)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Equal(t, 12, ranges[0].NumberMin)
	require.Equal(t, 12, ranges[0].NumberMax)
	require.Equal(t, 1, ranges[0].DocumentCount)
}

func TestRecordAbsent_KeysAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newRangeStore()
	require.NoError(t, s.RecordAbsent(ctx, lawdoc.TypeLoi, 2025, 5))
	require.NoError(t, s.RecordAbsent(ctx, lawdoc.TypeLoi, 2024, 6))
	require.NoError(t, s.RecordAbsent(ctx, lawdoc.TypeDecret, 2025, 6))

	ranges, err := s.Ranges(ctx, lawdoc.TypeLoi, 2025)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Equal(t, lawdoc.NotFoundRange{
		Type: lawdoc.TypeLoi, Year: 2025,
		NumberMin: 5, NumberMax: 5, DocumentCount: 1,
		CreatedAt: ranges[0].CreatedAt, UpdatedAt: ranges[0].UpdatedAt,
	}, ranges[0])
}

func TestRecordAbsentBatch_SortsBeforeApplying(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newRangeStore()
	ids := []lawdoc.Identifier{
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 9},
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 5},
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 7},
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 8},
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 6},
	}
	require.NoError(t, s.RecordAbsentBatch(ctx, ids))

	ranges, err := s.Ranges(ctx, lawdoc.TypeLoi, 2025)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Equal(t, 5, ranges[0].NumberMin)
	require.Equal(t, 9, ranges[0].NumberMax)
	require.Equal(t, 5, ranges[0].DocumentCount)
}

func TestIsAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newRangeStore()
	require.NoError(t, s.RecordAbsentBatch(ctx, []lawdoc.Identifier{
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 10},
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 11},
		{Type: lawdoc.TypeLoi, Year: 2025, Number: 12},
	}))

	for n, want := range map[int]bool{9: false, 10: true, 11: true, 12: true, 13: false} {
		got, err := s.IsAbsent(ctx, lawdoc.TypeLoi, 2025, n)
		require.NoError(t, err)
		require.Equal(t, want, got, "number %d", n)
	}
}

func TestConsolidate_RepairsFragmentation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newRangeStore()

	// Inject fragmentation directly, as racing chunk commits would.
	key := rangeKey{lawdoc.TypeLoi, 2025}
	s.ranges[key] = []lawdoc.NotFoundRange{
		{Type: lawdoc.TypeLoi, Year: 2025, NumberMin: 1, NumberMax: 3, DocumentCount: 3},
		{Type: lawdoc.TypeLoi, Year: 2025, NumberMin: 4, NumberMax: 6, DocumentCount: 3},
		{Type: lawdoc.TypeLoi, Year: 2025, NumberMin: 8, NumberMax: 9, DocumentCount: 2},
		{Type: lawdoc.TypeLoi, Year: 2025, NumberMin: 9, NumberMax: 12, DocumentCount: 4},
	}

	merged, err := s.Consolidate(ctx, lawdoc.TypeLoi, 2025)
	require.NoError(t, err)
	require.Equal(t, 2, merged)

	ranges, err := s.Ranges(ctx, lawdoc.TypeLoi, 2025)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	requireInvariants(t, ranges)
	require.Equal(t, 1, ranges[0].NumberMin)
	require.Equal(t, 6, ranges[0].NumberMax)
	require.Equal(t, 8, ranges[1].NumberMin)
	require.Equal(t, 12, ranges[1].NumberMax)
}

func TestRandomInsertionOrder_InvariantsHold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		s := newRangeStore()
		numbers := rng.Perm(60)
		for _, n := range numbers {
			if n%7 == 0 {
				continue // leave holes
			}
			require.NoError(t, s.RecordAbsent(ctx, lawdoc.TypeLoi, 2025, n+1))
		}
		_, err := s.Consolidate(ctx, lawdoc.TypeLoi, 2025)
		require.NoError(t, err)

		ranges, err := s.Ranges(ctx, lawdoc.TypeLoi, 2025)
		require.NoError(t, err)
		requireInvariants(t, ranges)
	}
}
