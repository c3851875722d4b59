// Package extract turns OCR text into structured articles and document
// metadata, with a confidence score for the extraction quality.
package extract

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatternsYAML []byte

// SignatoryPattern ties a recognition regex to a known signatory.
type SignatoryPattern struct {
	Pattern string `yaml:"pattern"`
	Role    string `yaml:"role"`
	Name    string `yaml:"name"`
}

// Patterns holds the regular expressions driving the extraction. They are
// data, not code: operators can override them without a rebuild when the
// upstream document layout drifts.
type Patterns struct {
	ArticleStart     string             `yaml:"article_start"`
	ArticleEndAny    string             `yaml:"article_end_any"`
	LawTitleStart    string             `yaml:"law_title_start"`
	LawTitleEnd      string             `yaml:"law_title_end"`
	PromulgationCity string             `yaml:"promulgation_city"`
	PromulgationDate string             `yaml:"promulgation_date"`
	LegalTerms       []string           `yaml:"legal_terms"`
	Signatories      []SignatoryPattern `yaml:"signatories"`
}

// DefaultPatterns returns the embedded pattern set.
func DefaultPatterns() (Patterns, error) {
	var p Patterns
	if err := yaml.Unmarshal(defaultPatternsYAML, &p); err != nil {
		return Patterns{}, fmt.Errorf("parse embedded patterns: %w", err)
	}
	return p, nil
}

// LoadPatterns reads a pattern file, falling back to the embedded
// defaults for any field the file leaves empty.
func LoadPatterns(path string) (Patterns, error) {
	p, err := DefaultPatterns()
	if err != nil {
		return Patterns{}, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return Patterns{}, fmt.Errorf("read patterns file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Patterns{}, fmt.Errorf("parse patterns file %s: %w", path, err)
	}
	return p, nil
}
