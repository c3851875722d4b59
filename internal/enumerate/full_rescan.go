package enumerate

import (
	"context"
	"fmt"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// FullRescan enumerates every number of the current year that has not been
// confirmed present. Numbers previously recorded absent are re-emitted on
// purpose: a document can appear after its numeric slot was provisionally
// empty, and only a re-probe discovers it.
type FullRescan struct {
	found lawdoc.FoundStore
	clock lawdoc.Clock
	opts  Options
}

// NewFullRescan builds the current-year strategy.
func NewFullRescan(found lawdoc.FoundStore, clock lawdoc.Clock, opts Options) *FullRescan {
	return &FullRescan{found: found, clock: clock, opts: opts}
}

// Candidates emits 1..MaxNumber ascending for the current year, skipping
// identifiers already in the found store.
func (e *FullRescan) Candidates(ctx context.Context) ([]lawdoc.Identifier, error) {
	year := e.clock.Now().Year()
	foundIDs, err := e.found.IDs(ctx, e.opts.DocumentType, year)
	if err != nil {
		return nil, fmt.Errorf("load found ids: %w", err)
	}

	out := make([]lawdoc.Identifier, 0, e.opts.MaxNumber)
	for number := 1; number <= e.opts.MaxNumber; number++ {
		id := lawdoc.Identifier{Type: e.opts.DocumentType, Year: year, Number: number}
		if _, ok := foundIDs[id.String()]; ok {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
