// Package ocr extracts text from retrieved PDFs. It shells out to
// external tools: a text-layer dump first, and a full OCR pass when the
// dumped text looks like scan noise.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// Config holds OCR engine configuration.
type Config struct {
	// TextTool dumps an embedded text layer. Default "pdftotext".
	TextTool string `mapstructure:"text_tool" yaml:"text_tool"`
	// OCRTool runs full OCR with a sidecar text file. Default "ocrmypdf".
	OCRTool string `mapstructure:"ocr_tool" yaml:"ocr_tool"`
	// Language is the OCR language. Default "fra".
	Language string `mapstructure:"language" yaml:"language"`
	// QualityThreshold is the text-layer quality floor below which the
	// OCR fallback runs. Default 0.5.
	QualityThreshold float64 `mapstructure:"quality_threshold" yaml:"quality_threshold"`
}

func (c Config) withDefaults() Config {
	if c.TextTool == "" {
		c.TextTool = "pdftotext"
	}
	if c.OCRTool == "" {
		c.OCRTool = "ocrmypdf"
	}
	if c.Language == "" {
		c.Language = "fra"
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = 0.5
	}
	return c
}

// closingMarker ends gazette documents; pages after it carry only
// distribution lists, so OCR output is cut there.
const closingMarker = "AMPLIATIONS"

// Engine implements lawdoc.OCREngine over external tools.
type Engine struct {
	cfg    Config
	logger *zap.Logger

	// both are swappable in tests
	textLayer   func(ctx context.Context, pdf []byte) (string, error)
	ocrFallback func(ctx context.Context, pdf []byte) (string, error)
}

// New builds an Engine.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{cfg: cfg.withDefaults(), logger: logger}
	e.textLayer = e.runTextTool
	e.ocrFallback = e.runOCRTool
	return e
}

var _ lawdoc.OCREngine = (*Engine)(nil)

// ExtractText dumps the embedded text layer and falls back to OCR when
// the dump's quality is below the threshold. Callers only ever see the
// final text; which path produced it is an internal matter.
func (e *Engine) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	direct, err := e.textLayer(ctx, pdf)
	if err == nil {
		quality := textQuality(direct)
		if quality >= e.cfg.QualityThreshold {
			e.logger.Debug("text layer accepted", zap.Float64("quality", quality))
			return direct, nil
		}
		e.logger.Debug("text layer below threshold, running ocr", zap.Float64("quality", quality))
	} else {
		e.logger.Debug("text layer extraction failed, running ocr", zap.Error(err))
	}

	text, ocrErr := e.ocrFallback(ctx, pdf)
	if ocrErr != nil {
		return "", fmt.Errorf("ocr fallback: %w", ocrErr)
	}
	return truncateAtMarker(text), nil
}

func (e *Engine) runTextTool(ctx context.Context, pdf []byte) (string, error) {
	// pdftotext reads the PDF from stdin and writes text to stdout.
	cmd := exec.CommandContext(ctx, e.cfg.TextTool, "-", "-")
	cmd.Stdin = bytes.NewReader(pdf)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w (%s)", e.cfg.TextTool, err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

func (e *Engine) runOCRTool(ctx context.Context, pdf []byte) (string, error) {
	dir, err := os.MkdirTemp("", "lawharvest-ocr-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger.Warn("ocr temp dir cleanup failed", zap.Error(rmErr))
		}
	}()

	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	sidecar := filepath.Join(dir, "sidecar.txt")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return "", fmt.Errorf("write temp pdf: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.cfg.OCRTool,
		"--force-ocr",
		"-l", e.cfg.Language,
		"--sidecar", sidecar,
		in, out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w (%s)", e.cfg.OCRTool, err, strings.TrimSpace(stderr.String()))
	}

	text, err := os.ReadFile(sidecar) // #nosec G304 -- path built from our own temp dir
	if err != nil {
		return "", fmt.Errorf("read sidecar: %w", err)
	}
	return string(text), nil
}

// truncateAtMarker keeps pages up to and including the one carrying the
// closing marker. Both tools separate pages with form feeds.
func truncateAtMarker(text string) string {
	pages := strings.Split(text, "\f")
	for i, page := range pages {
		if strings.Contains(strings.ToUpper(page), closingMarker) {
			return strings.Join(pages[:i+1], "\f")
		}
	}
	return text
}

// textQuality scores a text dump in [0,1]: mostly letters and digits
// with a reasonable share of whitespace reads like real text, a scan
// with no text layer dumps as sparse garbage.
func textQuality(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}
	total := 0
	valid := 0
	spaces := 0
	for _, r := range text {
		total++
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			valid++
		case unicode.IsSpace(r):
			spaces++
		}
	}
	validRatio := float64(valid) / float64(total)
	spaceRatio := float64(spaces) / float64(total)
	if spaceRatio > 0.2 {
		spaceRatio = 0.2
	}
	return validRatio*0.7 + spaceRatio*1.5
}
