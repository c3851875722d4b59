// Package lawdoc defines the core domain types and collaborator contracts
// shared across the discovery and processing pipeline.
package lawdoc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DocumentType distinguishes the two published document families.
type DocumentType string

const (
	TypeLoi    DocumentType = "loi"
	TypeDecret DocumentType = "decret"
)

// ValidType reports whether t is a known document type.
func ValidType(t DocumentType) bool {
	return t == TypeLoi || t == TypeDecret
}

// Identifier is the computed (type, year, number) tuple addressing one document.
type Identifier struct {
	Type   DocumentType
	Year   int
	Number int
}

// String returns the canonical form, e.g. "loi-2025-8".
func (id Identifier) String() string {
	return fmt.Sprintf("%s-%d-%d", id.Type, id.Year, id.Number)
}

// ParseIdentifier parses a canonical document ID like "loi-2025-8".
func ParseIdentifier(s string) (Identifier, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Identifier{}, fmt.Errorf("invalid document id %q: want type-year-number", s)
	}
	t := DocumentType(parts[0])
	if !ValidType(t) {
		return Identifier{}, fmt.Errorf("invalid document type %q", parts[0])
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Identifier{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}
	number, err := strconv.Atoi(parts[2])
	if err != nil {
		return Identifier{}, fmt.Errorf("invalid number in %q: %w", s, err)
	}
	if number < 1 {
		return Identifier{}, fmt.Errorf("invalid number %d in %q: must be >= 1", number, s)
	}
	return Identifier{Type: t, Year: year, Number: number}, nil
}

// Stage is one step of the per-document processing state machine.
type Stage string

const (
	StagePending      Stage = "PENDING"
	StageFetched      Stage = "FETCHED"
	StageDownloaded   Stage = "DOWNLOADED"
	StageExtracted    Stage = "EXTRACTED"
	StageConsolidated Stage = "CONSOLIDATED"
	StageFailed       Stage = "FAILED"
)

// FoundRecord is the persisted row for a confirmed-present document.
// Discovery is insert-only; the pipeline mutates Stage and LastError.
type FoundRecord struct {
	DocumentID   string
	Type         DocumentType
	Year         int
	Number       int
	URL          string
	Stage        Stage
	DiscoveredAt time.Time
	LastError    string
}

// NotFoundRange is a merged interval of confirmed-absent numbers for one
// (type, year). DocumentCount is always NumberMax-NumberMin+1.
type NotFoundRange struct {
	Type          DocumentType
	Year          int
	NumberMin     int
	NumberMax     int
	DocumentCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Contains reports whether number falls inside the range.
func (r NotFoundRange) Contains(number int) bool {
	return number >= r.NumberMin && number <= r.NumberMax
}

// Touches reports whether the number overlaps or is adjacent to the range,
// i.e. inserting it should extend this range rather than open a new one.
func (r NotFoundRange) Touches(number int) bool {
	return number >= r.NumberMin-1 && number <= r.NumberMax+1
}

// String renders the compact band notation, e.g. "loi;2025;19-300".
func (r NotFoundRange) String() string {
	if r.NumberMin == r.NumberMax {
		return fmt.Sprintf("%s;%d;%d", r.Type, r.Year, r.NumberMin)
	}
	return fmt.Sprintf("%s;%d;%d-%d", r.Type, r.Year, r.NumberMin, r.NumberMax)
}

// Cursor is the persisted resume position for the backward scan.
type Cursor struct {
	CursorType   string
	DocumentType DocumentType
	Year         int
	Number       int
	UpdatedAt    time.Time
}

// Outcome classifies a probe result. Absence must come from a confirmed
// negative signal; rate limiting and transport failures stay Unknown.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomePresent
	OutcomeAbsent
)

func (o Outcome) String() string {
	switch o {
	case OutcomePresent:
		return "present"
	case OutcomeAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// StatusNetworkError is the sentinel status for transport-level failures.
const StatusNetworkError = -1

// ProbeResult carries the typed outcome of an existence probe. URL is the
// URL that answered 200, which may be a zero-padded variant of the
// canonical one.
type ProbeResult struct {
	ID         Identifier
	Outcome    Outcome
	URL        string
	StatusCode int
	Padded     bool
}

// Article is one structured article extracted from a document's text.
type Article struct {
	Index   int
	Content string
}

// Metadata holds document-level fields extracted from OCR text.
type Metadata struct {
	Title            string
	PromulgationDate string
	PromulgationCity string
	Signatories      []string
}

// ArticleRecord is the persisted, consolidated form of an extracted article.
type ArticleRecord struct {
	DocumentID  string
	Index       int
	Title       string
	Content     string
	Confidence  float64
	Type        DocumentType
	Year        int
	Number      int
	SourceURL   string
	ExtractedAt time.Time
}

// ProcessResult is the uniform outcome of one pipeline run for one document.
// Callers branch on Success and Message only, never on error types.
type ProcessResult struct {
	DocumentID   string
	Success      bool
	Skipped      bool
	Stage        Stage
	Message      string
	ArticleCount int
	Confidence   float64
}

// FoundFilter narrows List queries on the found store.
type FoundFilter struct {
	Type  DocumentType
	Year  int
	Stage Stage
	Limit int
}
