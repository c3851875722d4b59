package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleLaw = `RÉPUBLIQUE DU BÉNIN

LOI N° 2025-14 portant protection des données personnelles.

L'Assemblée Nationale a délibéré et adopté.

Article premier : La présente loi s'applique à tout traitement de données
à caractère personnel effectué sur le territoire national.

Article 2 : Les dispositions de la présente loi sont d'application
immédiate, conformément au Journal Officiel.

Article 3 : Le ministre chargé du numérique veille à l'application de la
présente loi, notamment par voie de décret.

Fait à Cotonou, le 3 août 2025

Par le Président de la République,
Patrice TALON
`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewDefault(zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestExtractArticles(t *testing.T) {
	t.Parallel()

	articles := newExtractor(t).ExtractArticles(sampleLaw)
	require.Len(t, articles, 3)
	require.Equal(t, 1, articles[0].Index)
	require.Contains(t, articles[0].Content, "Article premier")
	require.Contains(t, articles[0].Content, "territoire national")
	require.Equal(t, 2, articles[1].Index)
	require.Contains(t, articles[1].Content, "application")
	require.Equal(t, 3, articles[2].Index)
	// The closing formula is not part of the last article.
	require.NotContains(t, articles[2].Content, "Fait à")
}

func TestExtractArticles_DropsShortFragments(t *testing.T) {
	t.Parallel()

	articles := newExtractor(t).ExtractArticles("Article 1\nArticle 2 : Contenu réel suffisant pour compter.")
	require.Len(t, articles, 1)
	require.Equal(t, 2, articles[0].Index)
}

func TestExtractArticles_EmptyText(t *testing.T) {
	t.Parallel()

	require.Empty(t, newExtractor(t).ExtractArticles(""))
}

func TestExtractMetadata(t *testing.T) {
	t.Parallel()

	meta := newExtractor(t).ExtractMetadata(sampleLaw)
	require.Contains(t, meta.Title, "LOI N° 2025-14")
	require.Equal(t, "2025-08-03", meta.PromulgationDate)
	require.Equal(t, "Cotonou", meta.PromulgationCity)
	require.Len(t, meta.Signatories, 1)
	require.Contains(t, meta.Signatories[0], "Patrice Talon")
}

func TestExtractMetadata_MissingFieldsStayEmpty(t *testing.T) {
	t.Parallel()

	meta := newExtractor(t).ExtractMetadata("Texte sans structure reconnaissable.")
	require.Empty(t, meta.Title)
	require.Empty(t, meta.PromulgationDate)
	require.Empty(t, meta.PromulgationCity)
	require.Empty(t, meta.Signatories)
}

func TestConfidence(t *testing.T) {
	t.Parallel()

	e := newExtractor(t)
	articles := e.ExtractArticles(sampleLaw)
	require.NotEmpty(t, articles)

	score := e.Confidence(sampleLaw, articles)
	require.Greater(t, score, 0.0)
	require.LessOrEqual(t, score, 1.0)

	// Legal vocabulary present: with no dictionary loaded the dict share
	// is neutral, so the score clears the article+dict floor.
	require.Greater(t, score, 0.3)

	require.Zero(t, e.Confidence("", articles))
	require.Zero(t, e.Confidence(sampleLaw, nil))
}

func TestConfidence_ComponentScoresSaturate(t *testing.T) {
	t.Parallel()

	e := newExtractor(t)

	// Far more articles and text than the scoring denominators: every
	// component must cap at its weight, keeping the total within [0,1].
	long := strings.Repeat(sampleLaw+" ", 20)
	arts := e.ExtractArticles(long)
	require.NotEmpty(t, arts)

	score := e.Confidence(long, arts)
	require.Greater(t, score, 0.0)
	require.LessOrEqual(t, score, 1.0)
}

func TestConfidence_DictionaryLowersScoreForGibberish(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dictPath := filepath.Join(dir, "dict.txt")
	require.NoError(t, os.WriteFile(dictPath, []byte("article\nloi\npresente\ndonnees\n"), 0o600))

	e := newExtractor(t)
	require.NoError(t, e.LoadDictionary(dictPath))

	clean := "Article premier : la loi presente des donnees. article loi presente donnees article loi"
	gibberish := "Article premier : xqzt vrbn klmp wfgh jdtc xqzt vrbn klmp wfgh jdtc xqzt vrbn"

	arts := e.ExtractArticles(clean)
	require.NotEmpty(t, arts)

	cleanScore := e.Confidence(clean, arts)
	gibberishScore := e.Confidence(gibberish, arts)
	require.Greater(t, cleanScore, gibberishScore)
}

func TestLoadPatterns_OverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("article_start: '(?i)^\\s*art\\.\\s*\\d+'\n"), 0o600))

	p, err := LoadPatterns(path)
	require.NoError(t, err)
	require.Equal(t, `(?i)^\s*art\.\s*\d+`, p.ArticleStart)
	// Untouched fields keep the embedded defaults.
	require.NotEmpty(t, p.PromulgationDate)
	require.NotEmpty(t, p.LegalTerms)

	e, err := New(p, zap.NewNop())
	require.NoError(t, err)
	arts := e.ExtractArticles("Art. 1 Contenu suffisant pour être retenu ici.")
	require.Len(t, arts, 1)
}

func TestNew_InvalidPatternFails(t *testing.T) {
	t.Parallel()

	p, err := DefaultPatterns()
	require.NoError(t, err)
	p.ArticleStart = "(unclosed"
	_, err = New(p, zap.NewNop())
	require.Error(t, err)
}
