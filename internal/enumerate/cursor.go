package enumerate

import (
	"context"
	"fmt"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// CursorTypePrevious is the cursor row key for the backward scan.
const CursorTypePrevious = "fetch-previous"

// CursorResumable walks prior years downward from a persisted cursor,
// skipping identifiers already confirmed present or inside a not-found
// range, and stops at the per-run item cap or the floor year. The cursor
// is persisted at the position one step beyond the last number considered
// so the next run continues without re-covering ground.
type CursorResumable struct {
	deps Deps
	opts Options
}

// NewCursorResumable builds the prior-years strategy.
func NewCursorResumable(deps Deps, opts Options) *CursorResumable {
	return &CursorResumable{deps: deps, opts: opts}
}

// Candidates computes the next batch and advances the persisted cursor.
func (e *CursorResumable) Candidates(ctx context.Context) ([]lawdoc.Identifier, error) {
	foundIDs, err := e.deps.Found.IDs(ctx, e.opts.DocumentType, 0)
	if err != nil {
		return nil, fmt.Errorf("load found ids: %w", err)
	}

	startYear, startNumber, err := e.loadPosition(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out        []lawdoc.Identifier
		lastYear   = startYear
		lastNumber = startNumber
		yearRanges []lawdoc.NotFoundRange
		rangedYear = -1
		capReached bool
	)

	for year := startYear; year >= e.opts.FloorYear && !capReached; year-- {
		startNum := e.opts.MaxNumber
		if year == startYear {
			startNum = startNumber
		}
		for number := startNum; number >= 1; number-- {
			lastYear, lastNumber = year, number

			id := lawdoc.Identifier{Type: e.opts.DocumentType, Year: year, Number: number}
			if _, ok := foundIDs[id.String()]; ok {
				continue
			}
			if rangedYear != year {
				yearRanges, err = e.deps.Ranges.Ranges(ctx, e.opts.DocumentType, year)
				if err != nil {
					return nil, fmt.Errorf("load not-found ranges for %d: %w", year, err)
				}
				rangedYear = year
			}
			if inRanges(yearRanges, number) {
				continue
			}

			out = append(out, id)
			if e.opts.MaxItems > 0 && len(out) >= e.opts.MaxItems {
				capReached = true
				break
			}
		}
	}

	if err := e.savePosition(ctx, lastYear, lastNumber); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *CursorResumable) loadPosition(ctx context.Context) (int, int, error) {
	cur, ok, err := e.deps.Cursors.Load(ctx, CursorTypePrevious, e.opts.DocumentType)
	if err != nil {
		// Restarting from the default position would silently re-cover
		// already-scanned ground, so a load failure aborts the run.
		return 0, 0, fmt.Errorf("load cursor: %w", err)
	}
	if ok {
		return cur.Year, cur.Number, nil
	}
	// No cursor yet: start just below the current year, at the top number.
	return e.deps.Clock.Now().Year() - 1, e.opts.MaxNumber, nil
}

// savePosition persists the position immediately after (going downward) the
// last number considered this run.
func (e *CursorResumable) savePosition(ctx context.Context, lastYear, lastNumber int) error {
	nextYear, nextNumber := lastYear, lastNumber-1
	if nextNumber < 1 {
		nextYear, nextNumber = lastYear-1, e.opts.MaxNumber
	}
	cur := lawdoc.Cursor{
		CursorType:   CursorTypePrevious,
		DocumentType: e.opts.DocumentType,
		Year:         nextYear,
		Number:       nextNumber,
		UpdatedAt:    e.deps.Clock.Now(),
	}
	if err := e.deps.Cursors.Save(ctx, cur); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func inRanges(ranges []lawdoc.NotFoundRange, number int) bool {
	for _, r := range ranges {
		if r.Contains(number) {
			return true
		}
	}
	return false
}
