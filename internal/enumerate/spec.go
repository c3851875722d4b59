// Package enumerate produces ordered candidate sequences for a scan run.
// Two strategies exist: a full rescan of the current year and a
// cursor-resumable backward scan of prior years.
package enumerate

import (
	"context"
	"fmt"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// Kind selects the enumeration strategy for a run.
type Kind int

const (
	// KindFullRescan re-probes every non-found number of the current year.
	KindFullRescan Kind = iota
	// KindCursorResumable walks prior years downward from a persisted cursor.
	KindCursorResumable
	// KindSingleTarget emits exactly one identifier.
	KindSingleTarget
)

// Spec is the tagged variant describing which enumerator a run should use.
// It is resolved once before the run starts.
type Spec struct {
	Kind   Kind
	Target lawdoc.Identifier // set for KindSingleTarget only
}

// Enumerator produces a finite, ordered candidate sequence. Implementations
// may persist bookkeeping (the scan cursor) as part of Candidates.
type Enumerator interface {
	Candidates(ctx context.Context) ([]lawdoc.Identifier, error)
}

// singleTarget emits one identifier, used for operator-driven reprocessing.
type singleTarget struct {
	id lawdoc.Identifier
}

func (s singleTarget) Candidates(_ context.Context) ([]lawdoc.Identifier, error) {
	return []lawdoc.Identifier{s.id}, nil
}

// Deps carries the stores the strategies consult.
type Deps struct {
	Found   lawdoc.FoundStore
	Ranges  lawdoc.RangeStore
	Cursors lawdoc.CursorStore
	Clock   lawdoc.Clock
}

// Options tunes strategy bounds.
type Options struct {
	DocumentType lawdoc.DocumentType
	MaxNumber    int // highest number probed per year
	FloorYear    int // oldest year the backward scan reaches
	MaxItems     int // per-run candidate cap for the backward scan; <= 0 means uncapped
}

// Resolve builds the enumerator described by spec.
func Resolve(spec Spec, deps Deps, opts Options) (Enumerator, error) {
	switch spec.Kind {
	case KindFullRescan:
		return NewFullRescan(deps.Found, deps.Clock, opts), nil
	case KindCursorResumable:
		return NewCursorResumable(deps, opts), nil
	case KindSingleTarget:
		if !lawdoc.ValidType(spec.Target.Type) {
			return nil, fmt.Errorf("single target requires a valid identifier, got %q", spec.Target.Type)
		}
		return singleTarget{id: spec.Target}, nil
	default:
		return nil, fmt.Errorf("unknown enumerator kind %d", spec.Kind)
	}
}
