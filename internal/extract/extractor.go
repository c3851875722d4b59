package extract

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// minArticleLength drops fragments that are regex noise, not articles.
const minArticleLength = 10

var frenchMonths = []string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

var wordSplitter = regexp.MustCompile(`[^a-zàâäéèêëïîôùûüÿçœæ]+`)

type compiledSignatory struct {
	re   *regexp.Regexp
	role string
	name string
}

// Extractor implements article and metadata extraction over OCR text.
type Extractor struct {
	articleStart     *regexp.Regexp
	articleEndAny    *regexp.Regexp
	lawTitleStart    *regexp.Regexp
	lawTitleEnd      *regexp.Regexp
	promulgationCity *regexp.Regexp
	promulgationDate *regexp.Regexp
	legalTerms       []string
	signatories      []compiledSignatory
	dictionary       map[string]struct{}
	logger           *zap.Logger
}

// New compiles the given patterns into an Extractor.
func New(p Patterns, logger *zap.Logger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		legalTerms: p.LegalTerms,
		dictionary: map[string]struct{}{},
		logger:     logger,
	}

	var err error
	compile := func(name, expr string) *regexp.Regexp {
		if err != nil {
			return nil
		}
		re, compErr := regexp.Compile(expr)
		if compErr != nil {
			err = fmt.Errorf("compile %s pattern: %w", name, compErr)
		}
		return re
	}
	e.articleStart = compile("article_start", p.ArticleStart)
	e.articleEndAny = compile("article_end_any", p.ArticleEndAny)
	e.lawTitleStart = compile("law_title_start", p.LawTitleStart)
	e.lawTitleEnd = compile("law_title_end", p.LawTitleEnd)
	e.promulgationCity = compile("promulgation_city", p.PromulgationCity)
	e.promulgationDate = compile("promulgation_date", p.PromulgationDate)
	if err != nil {
		return nil, err
	}

	for _, s := range p.Signatories {
		re, compErr := regexp.Compile(s.Pattern)
		if compErr != nil {
			logger.Warn("invalid signatory pattern", zap.String("pattern", s.Pattern), zap.Error(compErr))
			continue
		}
		e.signatories = append(e.signatories, compiledSignatory{re: re, role: s.Role, name: s.Name})
	}
	return e, nil
}

// NewDefault builds an Extractor from the embedded patterns.
func NewDefault(logger *zap.Logger) (*Extractor, error) {
	p, err := DefaultPatterns()
	if err != nil {
		return nil, err
	}
	return New(p, logger)
}

var _ lawdoc.ArticleExtractor = (*Extractor)(nil)

// LoadDictionary loads a word list used by the OCR quality score, one
// word per line. Without a dictionary the quality score is neutral.
func (e *Extractor) LoadDictionary(path string) error {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return fmt.Errorf("open dictionary %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w != "" {
			e.dictionary[w] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read dictionary %s: %w", path, err)
	}
	e.logger.Info("dictionary loaded", zap.String("path", path), zap.Int("words", len(e.dictionary)))
	return nil
}

// ExtractArticles splits the text into articles with a line state
// machine: an article runs from a start marker to the next start or end
// marker. Fragments shorter than the floor are dropped.
func (e *Extractor) ExtractArticles(text string) []lawdoc.Article {
	var (
		articles  []lawdoc.Article
		current   strings.Builder
		index     int
		inArticle bool
	)

	flush := func() {
		content := strings.TrimSpace(current.String())
		if len(content) > minArticleLength {
			articles = append(articles, lawdoc.Article{Index: index, Content: content})
		}
		current.Reset()
		inArticle = false
	}

	for _, line := range strings.Split(text, "\n") {
		isStart := e.articleStart.MatchString(line)
		isEnd := e.articleEndAny.MatchString(line)

		if (isStart || isEnd) && inArticle && current.Len() > 0 {
			flush()
		}
		if isStart {
			inArticle = true
			index++
		}
		if inArticle {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	if inArticle && current.Len() > 0 {
		flush()
	}
	return articles
}

// ExtractMetadata pulls the title, promulgation date, city, and
// signatories out of the text. Missing fields stay empty.
func (e *Extractor) ExtractMetadata(text string) lawdoc.Metadata {
	var meta lawdoc.Metadata

	if loc := e.lawTitleStart.FindStringIndex(text); loc != nil {
		rest := text[loc[0]:]
		if end := e.lawTitleEnd.FindStringIndex(rest); end != nil {
			meta.Title = strings.TrimSpace(rest[:end[0]])
		}
	}

	if m := e.promulgationDate.FindStringSubmatch(text); m != nil {
		meta.PromulgationDate = formatDate(m[1], m[3], m[4])
	}

	if m := e.promulgationCity.FindStringSubmatch(text); m != nil {
		meta.PromulgationCity = strings.TrimSpace(m[1])
	}

	for _, s := range e.signatories {
		if s.re.MatchString(text) {
			meta.Signatories = append(meta.Signatories, fmt.Sprintf("%s (%s)", s.name, s.role))
		}
	}
	return meta
}

// Confidence scores the extraction in [0,1]: article count (30%), text
// length (20%), dictionary recognition (30%), legal vocabulary (20%).
func (e *Extractor) Confidence(text string, articles []lawdoc.Article) float64 {
	if text == "" || len(articles) == 0 {
		return 0.0
	}

	articleScore := clamp01(float64(len(articles)) / 10.0)
	textLengthScore := clamp01(float64(len(text)) / 5000.0)
	dictScore := 1.0 - e.unrecognizedWordsRate(text)
	legalScore := clamp01(float64(e.legalTermsFound(text)) / 8.0)

	return articleScore*0.3 + textLengthScore*0.2 + dictScore*0.3 + legalScore*0.2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// unrecognizedWordsRate measures OCR quality against the dictionary.
// Words shorter than three letters are ignored; with no dictionary the
// rate is 0.
func (e *Extractor) unrecognizedWordsRate(text string) float64 {
	if len(e.dictionary) == 0 {
		return 0.0
	}
	total, unrec := 0, 0
	for _, w := range wordSplitter.Split(strings.ToLower(text), -1) {
		if len([]rune(w)) < 3 {
			continue
		}
		total++
		if _, ok := e.dictionary[w]; !ok {
			unrec++
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(unrec) / float64(total)
}

func (e *Extractor) legalTermsFound(text string) int {
	t := strings.ToLower(text)
	found := 0
	for _, term := range e.legalTerms {
		if strings.Contains(t, term) {
			found++
		}
	}
	return found
}

// formatDate turns "12", "août", "2025" into "2025-08-12".
func formatDate(day, month, year string) string {
	monthNum := 1
	for i, m := range frenchMonths {
		if strings.EqualFold(m, month) {
			monthNum = i + 1
			break
		}
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s-%02d-%s", year, monthNum, day)
}
