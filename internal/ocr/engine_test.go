package ocr

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEngine(textLayer, fallback func(context.Context, []byte) (string, error)) *Engine {
	e := New(Config{}, zap.NewNop())
	if textLayer != nil {
		e.textLayer = textLayer
	}
	if fallback != nil {
		e.ocrFallback = fallback
	}
	return e
}

func TestExtractText_GoodTextLayerSkipsOCR(t *testing.T) {
	t.Parallel()

	clean := strings.Repeat("Article premier la presente loi entre en vigueur ", 20)
	ocrCalled := false
	e := newEngine(
		func(context.Context, []byte) (string, error) { return clean, nil },
		func(context.Context, []byte) (string, error) {
			ocrCalled = true
			return "", nil
		},
	)

	got, err := e.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	require.Equal(t, clean, got)
	require.False(t, ocrCalled, "good text layer must not trigger OCR")
}

func TestExtractText_NoisyTextLayerFallsBack(t *testing.T) {
	t.Parallel()

	noise := strings.Repeat(".,;!?#@%^&*()[]{}|\\", 50)
	e := newEngine(
		func(context.Context, []byte) (string, error) { return noise, nil },
		func(context.Context, []byte) (string, error) { return "texte reconnu par ocr", nil },
	)

	got, err := e.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	require.Equal(t, "texte reconnu par ocr", got)
}

func TestExtractText_TextToolErrorFallsBack(t *testing.T) {
	t.Parallel()

	e := newEngine(
		func(context.Context, []byte) (string, error) { return "", fmt.Errorf("no text layer") },
		func(context.Context, []byte) (string, error) { return "texte ocr", nil },
	)

	got, err := e.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	require.Equal(t, "texte ocr", got)
}

func TestExtractText_BothPathsFailing(t *testing.T) {
	t.Parallel()

	e := newEngine(
		func(context.Context, []byte) (string, error) { return "", fmt.Errorf("no text layer") },
		func(context.Context, []byte) (string, error) { return "", fmt.Errorf("ocr binary missing") },
	)

	_, err := e.ExtractText(context.Background(), []byte("%PDF"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "ocr binary missing")
}

func TestExtractText_OCRStopsAtClosingMarker(t *testing.T) {
	t.Parallel()

	pages := "page un contenu\fpage deux AMPLIATIONS liste\fpage trois annexes"
	e := newEngine(
		func(context.Context, []byte) (string, error) { return "", fmt.Errorf("no text layer") },
		func(context.Context, []byte) (string, error) { return pages, nil },
	)

	got, err := e.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	require.Contains(t, got, "AMPLIATIONS")
	require.NotContains(t, got, "page trois")
}

func TestTextQuality(t *testing.T) {
	t.Parallel()

	require.Zero(t, textQuality(""))
	require.Zero(t, textQuality("   \n\t "))

	clean := "La presente loi entre en vigueur des sa promulgation au Journal Officiel"
	noise := ".,;!?#@%^&*()[]{}|\\.,;!?#@%^&*()[]{}|\\"
	require.Greater(t, textQuality(clean), textQuality(noise))
	require.GreaterOrEqual(t, textQuality(clean), 0.5)
	require.Less(t, textQuality(noise), 0.5)
}
