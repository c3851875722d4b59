package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

type rangeKey struct {
	t    lawdoc.DocumentType
	year int
}

// RangeStore keeps merged not-found intervals per (type, year). A single
// store-wide mutex stands in for the per-key lock the Postgres
// implementation uses; contention is irrelevant at in-memory speeds.
type RangeStore struct {
	mu     sync.Mutex
	ranges map[rangeKey][]lawdoc.NotFoundRange
	clock  lawdoc.Clock
}

// NewRangeStore constructs a RangeStore.
func NewRangeStore(clock lawdoc.Clock) *RangeStore {
	return &RangeStore{
		ranges: make(map[rangeKey][]lawdoc.NotFoundRange),
		clock:  clock,
	}
}

var _ lawdoc.RangeStore = (*RangeStore)(nil)

// RecordAbsent inserts one confirmed-absent number, merging it into any
// overlapping-or-adjacent existing ranges.
func (s *RangeStore) RecordAbsent(_ context.Context, t lawdoc.DocumentType, year, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(t, year, number)
	return nil
}

// RecordAbsentBatch sorts ascending by (type, year, number) and applies the
// numbers one at a time, so out-of-order parallel results still merge.
func (s *RangeStore) RecordAbsentBatch(_ context.Context, ids []lawdoc.Identifier) error {
	sorted := make([]lawdoc.Identifier, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type < sorted[j].Type
		}
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Number < sorted[j].Number
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sorted {
		s.insertLocked(id.Type, id.Year, id.Number)
	}
	return nil
}

// IsAbsent reports whether the number lies inside a recorded range.
func (s *RangeStore) IsAbsent(_ context.Context, t lawdoc.DocumentType, year, number int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ranges[rangeKey{t, year}] {
		if r.Contains(number) {
			return true, nil
		}
	}
	return false, nil
}

// Consolidate walks the ranges ascending and merges any that remain
// overlapping or adjacent. Returns the number of ranges merged away.
func (s *RangeStore) Consolidate(_ context.Context, t lawdoc.DocumentType, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rangeKey{t, year}
	ranges := s.ranges[key]
	if len(ranges) <= 1 {
		return 0, nil
	}
	sortRanges(ranges)

	now := s.clock.Now()
	merged := 0
	out := ranges[:0]
	current := ranges[0]
	for _, next := range ranges[1:] {
		if next.NumberMin <= current.NumberMax+1 {
			if next.NumberMax > current.NumberMax {
				current.NumberMax = next.NumberMax
			}
			current.DocumentCount = current.NumberMax - current.NumberMin + 1
			current.UpdatedAt = now
			merged++
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)
	s.ranges[key] = out
	return merged, nil
}

// Ranges returns the ranges for (type, year) ascending by NumberMin.
func (s *RangeStore) Ranges(_ context.Context, t lawdoc.DocumentType, year int) ([]lawdoc.NotFoundRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ranges := s.ranges[rangeKey{t, year}]
	out := make([]lawdoc.NotFoundRange, len(ranges))
	copy(out, ranges)
	sortRanges(out)
	return out, nil
}

func (s *RangeStore) insertLocked(t lawdoc.DocumentType, year, number int) {
	key := rangeKey{t, year}
	ranges := s.ranges[key]
	now := s.clock.Now()

	var (
		touching []int
		kept     []lawdoc.NotFoundRange
	)
	for i, r := range ranges {
		if r.Touches(number) {
			touching = append(touching, i)
		}
	}
	if len(touching) == 0 {
		s.ranges[key] = append(ranges, lawdoc.NotFoundRange{
			Type:          t,
			Year:          year,
			NumberMin:     number,
			NumberMax:     number,
			DocumentCount: 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return
	}

	// Extend the first touching range to the union bound and drop the rest.
	union := ranges[touching[0]]
	minN, maxN := minInt(union.NumberMin, number), maxInt(union.NumberMax, number)
	for _, i := range touching[1:] {
		minN = minInt(minN, ranges[i].NumberMin)
		maxN = maxInt(maxN, ranges[i].NumberMax)
	}
	union.NumberMin = minN
	union.NumberMax = maxN
	union.DocumentCount = maxN - minN + 1
	union.UpdatedAt = now

	touchSet := make(map[int]struct{}, len(touching))
	for _, i := range touching {
		touchSet[i] = struct{}{}
	}
	for i, r := range ranges {
		if _, drop := touchSet[i]; !drop {
			kept = append(kept, r)
		}
	}
	s.ranges[key] = append(kept, union)
}

func sortRanges(ranges []lawdoc.NotFoundRange) {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].NumberMin < ranges[j].NumberMin
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
