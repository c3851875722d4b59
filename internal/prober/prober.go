// Package prober implements the existence check for candidate identifiers,
// including the zero-padding fallback used by small document numbers.
package prober

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/ratelimit"
)

// Prober resolves whether a candidate identifier exists upstream. It only
// ever reports Absent on a confirmed 404 with no padding variant left to
// try; 429s and transport errors stay Unknown.
type Prober struct {
	baseURL   string
	retriever lawdoc.Retriever
	limiter   *ratelimit.Controller
	logger    *zap.Logger
}

// New builds a Prober.
func New(baseURL string, retriever lawdoc.Retriever, limiter *ratelimit.Controller, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		baseURL:   baseURL,
		retriever: retriever,
		limiter:   limiter,
		logger:    logger,
	}
}

var _ lawdoc.Prober = (*Prober)(nil)

// Probe checks the canonical URL and, on a 404 for a small number, the
// zero-padded variant (2 digits for 1-9, 3 digits for 10-99).
func (p *Prober) Probe(ctx context.Context, id lawdoc.Identifier) lawdoc.ProbeResult {
	url := lawdoc.CanonicalURL(p.baseURL, id)
	code := p.limiter.ProbeWithRetry(ctx, url, p.probeStatus)

	switch {
	case code == http.StatusOK:
		return lawdoc.ProbeResult{ID: id, Outcome: lawdoc.OutcomePresent, URL: url, StatusCode: code}
	case code == http.StatusNotFound:
		if width, ok := paddingWidth(id.Number); ok {
			return p.probePadded(ctx, id, width)
		}
		return lawdoc.ProbeResult{ID: id, Outcome: lawdoc.OutcomeAbsent, StatusCode: code}
	case code == http.StatusTooManyRequests || code < 0:
		return lawdoc.ProbeResult{ID: id, Outcome: lawdoc.OutcomeUnknown, StatusCode: code}
	default:
		p.logger.Warn("unexpected probe status",
			zap.String("document_id", id.String()),
			zap.Int("status", code),
		)
		return lawdoc.ProbeResult{ID: id, Outcome: lawdoc.OutcomeUnknown, StatusCode: code}
	}
}

func (p *Prober) probePadded(ctx context.Context, id lawdoc.Identifier, width int) lawdoc.ProbeResult {
	url := lawdoc.PaddedURL(p.baseURL, id, width)
	code := p.limiter.ProbeWithRetry(ctx, url, p.probeStatus)

	switch {
	case code == http.StatusOK:
		p.logger.Debug("found with padded number",
			zap.String("document_id", id.String()),
			zap.String("url", url),
		)
		return lawdoc.ProbeResult{ID: id, Outcome: lawdoc.OutcomePresent, URL: url, StatusCode: code, Padded: true}
	case code == http.StatusNotFound:
		// 404 on both the canonical and padded forms: confirmed absent.
		return lawdoc.ProbeResult{ID: id, Outcome: lawdoc.OutcomeAbsent, StatusCode: code}
	default:
		return lawdoc.ProbeResult{ID: id, Outcome: lawdoc.OutcomeUnknown, StatusCode: code}
	}
}

func (p *Prober) probeStatus(ctx context.Context, url string) int {
	code, err := p.retriever.Probe(ctx, url)
	if err != nil {
		p.logger.Debug("probe transport failure", zap.String("url", url), zap.Error(err))
		return lawdoc.StatusNetworkError
	}
	return code
}

func paddingWidth(number int) (int, bool) {
	switch {
	case number >= 1 && number <= 9:
		return 2, true
	case number >= 10 && number <= 99:
		return 3, true
	default:
		return 0, false
	}
}
