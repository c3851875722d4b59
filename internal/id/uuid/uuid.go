// Package uuid provides run ID generation.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// Generator creates UUID v7 strings. V7 IDs sort by creation time, which
// keeps scan run IDs ordered in logs and queries.
type Generator struct{}

var _ lawdoc.IDGenerator = Generator{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
