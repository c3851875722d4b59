// Package system provides the real clock implementation.
package system

import (
	"time"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// Clock implements lawdoc.Clock using time.Now.
type Clock struct{}

var _ lawdoc.Clock = Clock{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
