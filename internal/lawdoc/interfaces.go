package lawdoc

import (
	"context"
	"time"
)

// FoundStore persists confirmed-present documents. Discovery inserts are
// idempotent: inserting an already-known document is a no-op.
type FoundStore interface {
	// Insert adds a discovery record. It returns false when a record for
	// the same document already existed and nothing was written.
	Insert(ctx context.Context, rec FoundRecord) (bool, error)
	Get(ctx context.Context, documentID string) (FoundRecord, bool, error)
	// IDs returns the set of known document IDs for a type, optionally
	// restricted to one year (year <= 0 means all years).
	IDs(ctx context.Context, t DocumentType, year int) (map[string]struct{}, error)
	UpdateStage(ctx context.Context, documentID string, stage Stage, errText string) error
	List(ctx context.Context, filter FoundFilter) ([]FoundRecord, error)
}

// RangeStore persists confirmed-absent numbers as merged intervals.
type RangeStore interface {
	RecordAbsent(ctx context.Context, t DocumentType, year, number int) error
	// RecordAbsentBatch sorts the identifiers ascending before applying
	// them one at a time, so adjacent numbers arriving out of order still
	// merge into a single range.
	RecordAbsentBatch(ctx context.Context, ids []Identifier) error
	IsAbsent(ctx context.Context, t DocumentType, year, number int) (bool, error)
	// Consolidate repairs fragmentation left by concurrent writers and
	// returns the number of ranges merged away.
	Consolidate(ctx context.Context, t DocumentType, year int) (int, error)
	Ranges(ctx context.Context, t DocumentType, year int) ([]NotFoundRange, error)
}

// CursorStore persists the resumable scan position.
type CursorStore interface {
	Load(ctx context.Context, cursorType string, t DocumentType) (Cursor, bool, error)
	Save(ctx context.Context, cur Cursor) error
}

// ArticleStore persists consolidated article rows.
type ArticleStore interface {
	InsertBatch(ctx context.Context, recs []ArticleRecord) error
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	ListByDocument(ctx context.Context, documentID string) ([]ArticleRecord, error)
}

// ArtifactKind names the durable per-document artifacts.
type ArtifactKind string

const (
	ArtifactPDF      ArtifactKind = "pdf"
	ArtifactOCR      ArtifactKind = "ocr"
	ArtifactArticles ArtifactKind = "articles"
)

// ArtifactStore is the binary/text artifact storage collaborator. Content
// is addressed by (kind, type, documentID), one object per document.
type ArtifactStore interface {
	Exists(ctx context.Context, kind ArtifactKind, t DocumentType, documentID string) (bool, error)
	Save(ctx context.Context, kind ArtifactKind, t DocumentType, documentID string, data []byte) (string, error)
	Read(ctx context.Context, kind ArtifactKind, t DocumentType, documentID string) ([]byte, error)
}

// Prober issues a lightweight existence check for a candidate identifier.
type Prober interface {
	Probe(ctx context.Context, id Identifier) ProbeResult
}

// Retriever talks HTTP to the upstream: Probe is the cheap side-effect-free
// existence verb, Fetch transfers the full payload.
type Retriever interface {
	Probe(ctx context.Context, url string) (int, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// OCREngine turns a retrieved binary into plain text. Internal fallbacks
// between extraction strategies do not leak to callers.
type OCREngine interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// ArticleExtractor turns OCR text into structured articles plus a
// confidence score in [0,1].
type ArticleExtractor interface {
	ExtractArticles(text string) []Article
	ExtractMetadata(text string) Metadata
	Confidence(text string, articles []Article) float64
}

// Publisher pushes discovery events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Notifier delivers operator-facing digests (scan summaries, failures).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
