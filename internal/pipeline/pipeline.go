// Package pipeline drives one document through fetch, download, text
// extraction, and article consolidation. Each step is idempotent: work
// whose output already exists is skipped, so reprocessing a document is
// always safe.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/hash/sha256"
	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/metrics"
)

// Config controls Orchestrator behavior.
type Config struct {
	// MinTextLength is the floor below which extracted text counts as an
	// extraction failure. Zero means 100.
	MinTextLength int
}

func (c Config) withDefaults() Config {
	if c.MinTextLength <= 0 {
		c.MinTextLength = 100
	}
	return c
}

// Orchestrator owns the per-document processing pipeline.
type Orchestrator struct {
	found     lawdoc.FoundStore
	articles  lawdoc.ArticleStore
	artifacts lawdoc.ArtifactStore
	prober    lawdoc.Prober
	retriever lawdoc.Retriever
	ocr       lawdoc.OCREngine
	extractor lawdoc.ArticleExtractor
	clock     lawdoc.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Orchestrator.
func New(
	found lawdoc.FoundStore,
	articles lawdoc.ArticleStore,
	artifacts lawdoc.ArtifactStore,
	prober lawdoc.Prober,
	retriever lawdoc.Retriever,
	ocr lawdoc.OCREngine,
	extractor lawdoc.ArticleExtractor,
	clock lawdoc.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		found:     found,
		articles:  articles,
		artifacts: artifacts,
		prober:    prober,
		retriever: retriever,
		ocr:       ocr,
		extractor: extractor,
		clock:     clock,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Process runs the pipeline for one document. It never returns an error
// and never panics: every failure is reported through the result so a
// batch caller can keep going. With force set, previously consolidated
// article rows are deleted and rebuilt; stored PDF and OCR artifacts are
// reused as-is.
func (o *Orchestrator) Process(ctx context.Context, documentID string, force bool) (res lawdoc.ProcessResult) {
	res = lawdoc.ProcessResult{DocumentID: documentID}
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Message = fmt.Sprintf("panic: %v", r)
			o.logger.Error("pipeline panic recovered",
				zap.String("document_id", documentID),
				zap.Any("panic", r),
			)
		}
		metrics.ObserveDocumentProcessed(string(res.Stage))
	}()

	rec, ok, err := o.found.Get(ctx, documentID)
	if err != nil {
		return o.fail(ctx, res, lawdoc.StagePending, fmt.Sprintf("load document: %v", err))
	}
	if !ok || force {
		rec, err = o.verifyUpstream(ctx, documentID, rec, ok)
		if err != nil {
			if !ok {
				// Nothing persisted yet, so there is no record to mark failed.
				res.Stage = lawdoc.StagePending
				res.Message = err.Error()
				return res
			}
			return o.fail(ctx, res, rec.Stage, err.Error())
		}
	}
	res.Stage = rec.Stage

	count, err := o.articles.CountByDocument(ctx, documentID)
	if err != nil {
		return o.fail(ctx, res, rec.Stage, fmt.Sprintf("count articles: %v", err))
	}
	if count == 0 && !force {
		exported, err := o.artifacts.Exists(ctx, lawdoc.ArtifactArticles, rec.Type, rec.DocumentID)
		if err != nil {
			return o.fail(ctx, res, rec.Stage, fmt.Sprintf("check articles artifact: %v", err))
		}
		if exported {
			res.Success = true
			res.Skipped = true
			res.Stage = lawdoc.StageConsolidated
			res.Message = "already consolidated"
			return res
		}
	}
	if count > 0 && !force {
		res.Success = true
		res.Skipped = true
		res.Stage = lawdoc.StageConsolidated
		res.ArticleCount = count
		res.Message = "already consolidated"
		return res
	}
	if count > 0 {
		deleted, err := o.articles.DeleteByDocument(ctx, documentID)
		if err != nil {
			return o.fail(ctx, res, rec.Stage, fmt.Sprintf("delete articles for reprocess: %v", err))
		}
		o.logger.Info("forced reprocess, article rows deleted",
			zap.String("document_id", documentID),
			zap.Int64("deleted", deleted),
		)
	}

	rec, err = o.ensureFetched(ctx, rec)
	if err != nil {
		return o.fail(ctx, res, rec.Stage, err.Error())
	}
	res.Stage = lawdoc.StageFetched

	pdf, err := o.ensureDownloaded(ctx, rec)
	if err != nil {
		return o.fail(ctx, res, res.Stage, err.Error())
	}
	res.Stage = lawdoc.StageDownloaded

	text, err := o.ensureExtracted(ctx, rec, pdf)
	if err != nil {
		return o.fail(ctx, res, res.Stage, err.Error())
	}
	res.Stage = lawdoc.StageExtracted

	count, confidence, err := o.consolidate(ctx, rec, text)
	if err != nil {
		return o.fail(ctx, res, res.Stage, err.Error())
	}
	res.Stage = lawdoc.StageConsolidated
	res.Success = true
	res.ArticleCount = count
	res.Confidence = confidence

	if err := o.found.UpdateStage(ctx, documentID, lawdoc.StageConsolidated, ""); err != nil {
		o.logger.Warn("final stage update failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}
	o.logger.Info("document consolidated",
		zap.String("document_id", documentID),
		zap.Int("articles", count),
		zap.Float64("confidence", confidence),
	)
	return res
}

// verifyUpstream probes the document, creating the discovery record when
// none exists yet and refreshing the answering URL otherwise. Force
// reprocessing lands here too: even a fully processed document gets one
// fresh probe before its articles are rebuilt.
func (o *Orchestrator) verifyUpstream(ctx context.Context, documentID string, rec lawdoc.FoundRecord, known bool) (lawdoc.FoundRecord, error) {
	id, err := lawdoc.ParseIdentifier(documentID)
	if err != nil {
		return rec, fmt.Errorf("parse document id: %w", err)
	}

	started := o.clock.Now()
	probe := o.prober.Probe(ctx, id)
	metrics.ObservePipelineStage(string(lawdoc.StageFetched), o.clock.Now().Sub(started))

	if probe.Outcome != lawdoc.OutcomePresent {
		return rec, fmt.Errorf("document not reachable upstream (outcome %s, status %d)", probe.Outcome, probe.StatusCode)
	}
	if known {
		rec.URL = probe.URL
		return rec, nil
	}

	rec = lawdoc.FoundRecord{
		DocumentID:   documentID,
		Type:         id.Type,
		Year:         id.Year,
		Number:       id.Number,
		URL:          probe.URL,
		Stage:        lawdoc.StageFetched,
		DiscoveredAt: o.clock.Now(),
	}
	if _, err := o.found.Insert(ctx, rec); err != nil {
		return rec, fmt.Errorf("insert discovery record: %w", err)
	}
	o.logger.Info("document discovered during processing",
		zap.String("document_id", documentID),
		zap.String("url", probe.URL),
	)
	return rec, nil
}

// ensureFetched re-verifies the document upstream when no answering URL
// is recorded yet.
func (o *Orchestrator) ensureFetched(ctx context.Context, rec lawdoc.FoundRecord) (lawdoc.FoundRecord, error) {
	if rec.URL != "" {
		return rec, nil
	}

	started := o.clock.Now()
	id := lawdoc.Identifier{Type: rec.Type, Year: rec.Year, Number: rec.Number}
	probe := o.prober.Probe(ctx, id)
	metrics.ObservePipelineStage(string(lawdoc.StageFetched), o.clock.Now().Sub(started))

	if probe.Outcome != lawdoc.OutcomePresent {
		return rec, fmt.Errorf("document not reachable upstream (outcome %s, status %d)", probe.Outcome, probe.StatusCode)
	}
	rec.URL = probe.URL
	if err := o.found.UpdateStage(ctx, rec.DocumentID, lawdoc.StageFetched, ""); err != nil {
		return rec, fmt.Errorf("update stage to fetched: %w", err)
	}
	rec.Stage = lawdoc.StageFetched
	return rec, nil
}

func (o *Orchestrator) ensureDownloaded(ctx context.Context, rec lawdoc.FoundRecord) ([]byte, error) {
	exists, err := o.artifacts.Exists(ctx, lawdoc.ArtifactPDF, rec.Type, rec.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("check pdf artifact: %w", err)
	}
	if exists {
		data, err := o.artifacts.Read(ctx, lawdoc.ArtifactPDF, rec.Type, rec.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("read pdf artifact: %w", err)
		}
		return data, nil
	}

	started := o.clock.Now()
	data, err := o.retriever.Fetch(ctx, rec.URL)
	metrics.ObservePipelineStage(string(lawdoc.StageDownloaded), o.clock.Now().Sub(started))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rec.URL, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download %s: empty payload", rec.URL)
	}

	uri, err := o.artifacts.Save(ctx, lawdoc.ArtifactPDF, rec.Type, rec.DocumentID, data)
	if err != nil {
		return nil, fmt.Errorf("save pdf artifact: %w", err)
	}
	o.logger.Debug("pdf stored",
		zap.String("document_id", rec.DocumentID),
		zap.String("uri", uri),
		zap.Int("bytes", len(data)),
		zap.String("sha256", sha256.Sum(data)),
	)
	if err := o.found.UpdateStage(ctx, rec.DocumentID, lawdoc.StageDownloaded, ""); err != nil {
		return nil, fmt.Errorf("update stage to downloaded: %w", err)
	}
	return data, nil
}

func (o *Orchestrator) ensureExtracted(ctx context.Context, rec lawdoc.FoundRecord, pdf []byte) (string, error) {
	exists, err := o.artifacts.Exists(ctx, lawdoc.ArtifactOCR, rec.Type, rec.DocumentID)
	if err != nil {
		return "", fmt.Errorf("check ocr artifact: %w", err)
	}
	if exists {
		data, err := o.artifacts.Read(ctx, lawdoc.ArtifactOCR, rec.Type, rec.DocumentID)
		if err != nil {
			return "", fmt.Errorf("read ocr artifact: %w", err)
		}
		return string(data), nil
	}

	started := o.clock.Now()
	text, err := o.ocr.ExtractText(ctx, pdf)
	metrics.ObservePipelineStage(string(lawdoc.StageExtracted), o.clock.Now().Sub(started))
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if len(text) < o.cfg.MinTextLength {
		return "", fmt.Errorf("extracted text too short (%d chars, floor %d)", len(text), o.cfg.MinTextLength)
	}

	if _, err := o.artifacts.Save(ctx, lawdoc.ArtifactOCR, rec.Type, rec.DocumentID, []byte(text)); err != nil {
		return "", fmt.Errorf("save ocr artifact: %w", err)
	}
	if err := o.found.UpdateStage(ctx, rec.DocumentID, lawdoc.StageExtracted, ""); err != nil {
		return "", fmt.Errorf("update stage to extracted: %w", err)
	}
	return text, nil
}

func (o *Orchestrator) consolidate(ctx context.Context, rec lawdoc.FoundRecord, text string) (int, float64, error) {
	articles := o.extractor.ExtractArticles(text)
	if len(articles) == 0 {
		return 0, 0, fmt.Errorf("no articles extracted")
	}
	meta := o.extractor.ExtractMetadata(text)
	confidence := o.extractor.Confidence(text, articles)

	now := o.clock.Now()
	recs := make([]lawdoc.ArticleRecord, 0, len(articles))
	for _, a := range articles {
		recs = append(recs, lawdoc.ArticleRecord{
			DocumentID:  rec.DocumentID,
			Index:       a.Index,
			Title:       meta.Title,
			Content:     a.Content,
			Confidence:  confidence,
			Type:        rec.Type,
			Year:        rec.Year,
			Number:      rec.Number,
			SourceURL:   rec.URL,
			ExtractedAt: now,
		})
	}
	if err := o.articles.InsertBatch(ctx, recs); err != nil {
		return 0, 0, fmt.Errorf("insert articles: %w", err)
	}

	if err := o.saveArticlesArtifact(ctx, rec, meta, articles, confidence); err != nil {
		// The rows are the durable record; a failed JSON export is not fatal.
		o.logger.Warn("articles artifact save failed",
			zap.String("document_id", rec.DocumentID),
			zap.Error(err),
		)
	}
	return len(articles), confidence, nil
}

func (o *Orchestrator) saveArticlesArtifact(
	ctx context.Context,
	rec lawdoc.FoundRecord,
	meta lawdoc.Metadata,
	articles []lawdoc.Article,
	confidence float64,
) error {
	doc := struct {
		DocumentID string           `json:"document_id"`
		Metadata   lawdoc.Metadata  `json:"metadata"`
		Articles   []lawdoc.Article `json:"articles"`
		Confidence float64          `json:"confidence"`
	}{
		DocumentID: rec.DocumentID,
		Metadata:   meta,
		Articles:   articles,
		Confidence: confidence,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}
	if _, err := o.artifacts.Save(ctx, lawdoc.ArtifactArticles, rec.Type, rec.DocumentID, data); err != nil {
		return fmt.Errorf("save articles artifact: %w", err)
	}
	return nil
}

// fail records the failure on the found row and builds the result. The
// stage in the result is the last stage completed, not Failed; the store
// row carries the Failed marker plus the reason.
func (o *Orchestrator) fail(ctx context.Context, res lawdoc.ProcessResult, stage lawdoc.Stage, msg string) lawdoc.ProcessResult {
	res.Success = false
	res.Stage = stage
	res.Message = msg
	if err := o.found.UpdateStage(ctx, res.DocumentID, lawdoc.StageFailed, msg); err != nil {
		o.logger.Warn("failure stage update failed",
			zap.String("document_id", res.DocumentID),
			zap.Error(err),
		)
	}
	o.logger.Warn("pipeline step failed",
		zap.String("document_id", res.DocumentID),
		zap.String("stage", string(stage)),
		zap.String("reason", msg),
	)
	return res
}
