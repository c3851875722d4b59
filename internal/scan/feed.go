// Package scan drives a discovery run: enumerate candidates, probe each
// one against the upstream, and commit the outcomes to the stores.
package scan

import (
	"sync/atomic"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// feed hands out candidates to workers one at a time. The slice is fixed
// at construction, so a single atomic index is the only shared state.
type feed struct {
	ids  []lawdoc.Identifier
	next atomic.Int64
}

func newFeed(ids []lawdoc.Identifier) *feed {
	return &feed{ids: ids}
}

// Next returns the next unclaimed candidate, or false when drained.
func (f *feed) Next() (lawdoc.Identifier, bool) {
	i := f.next.Add(1) - 1
	if int(i) >= len(f.ids) {
		return lawdoc.Identifier{}, false
	}
	return f.ids[i], true
}
