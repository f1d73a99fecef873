package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// reasonKeywords qualify a sentence as a plausible recall reason
	// during keyword-scan fallback.
	reasonKeywords = []string{"recall", "contamination", "defect", "quality", "safety", "problem", "issue"}

	// headingNoise disqualifies a heading from being treated as a
	// recall summary.
	headingNoise = []string{"date", "batch", "manufacturer"}
)

// Extractor applies the pattern table to free text and markup.
type Extractor struct {
	table map[string]*fieldMatcher
}

// New builds an Extractor from the embedded pattern table. The table is
// static, so a compile failure is a programming error.
func New() *Extractor {
	table, err := loadPatternTable(patternsYAML)
	if err != nil {
		panic(err)
	}
	return &Extractor{table: table}
}

// normalizeText collapses whitespace runs within lines but keeps
// newlines so the reason patterns can stop at the next "Label:" line.
// Case is preserved; the patterns themselves match case-insensitively
// so captured values keep their source casing.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}

// Fields runs every field of the pattern table against text and returns
// the first qualifying match per field. Absent fields are simply not in
// the map.
func (e *Extractor) Fields(text string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return out
	}
	norm := normalizeText(text)
	for field := range e.table {
		if v := e.Field(norm, field); v != "" {
			out[field] = v
		}
	}
	return out
}

// Field extracts a single field from already-normalized text. Returns
// "" when no pattern produces a qualifying match.
func (e *Extractor) Field(norm, field string) string {
	fm, ok := e.table[field]
	if !ok {
		zap.L().Debug("extract: unknown field requested", zap.String("field", field))
		return ""
	}
	for _, re := range fm.patterns {
		m := re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		val := cleanMatch(m[1])
		if len(val) < fm.minLen {
			continue
		}
		if fm.maxLen > 0 && len(val) > fm.maxLen {
			val = truncate(val, fm.maxLen)
		}
		return val
	}
	return ""
}

// Reason runs the full reason-for-recall fallback chain:
//  1. pattern table against the plain text
//  2. structural markup cues (h5 summaries, then keyword paragraphs)
//  3. keyword sentence scan over the plain text
//
// Returns "" when every strategy fails; callers synthesize a fallback
// phrase in that case so the field is never empty in a stored record.
func (e *Extractor) Reason(text, html string) string {
	if text != "" {
		if r := e.Field(normalizeText(text), FieldReason); r != "" {
			return r
		}
	}
	if html != "" {
		if r := reasonFromMarkup(html); r != "" {
			return r
		}
	}
	if text != "" {
		if r := reasonFromSentences(text); r != "" {
			return r
		}
	}
	return ""
}

// reasonFromMarkup mines the page structure for a recall summary: h5
// headings are used by the source site for one-line summaries, and
// paragraphs mentioning recall keywords come next.
func reasonFromMarkup(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("extract: unparseable markup", zap.Error(err))
		return ""
	}

	var found string
	doc.Find("h5").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) <= 30 {
			return true
		}
		lower := strings.ToLower(text)
		for _, noise := range headingNoise {
			if strings.Contains(lower, noise) {
				return true
			}
		}
		found = truncate(text, 1000)
		return false
	})
	if found != "" {
		return found
	}

	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) <= 50 {
			return true
		}
		if containsAny(strings.ToLower(text), reasonKeywords) {
			found = truncate(text, 1000)
			return false
		}
		return true
	})
	return found
}

// reasonFromSentences returns the first sentence over 30 characters
// mentioning a recall keyword.
func reasonFromSentences(text string) string {
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) > 30 && containsAny(strings.ToLower(sentence), reasonKeywords) {
			return truncate(sentence, 1000)
		}
	}
	return ""
}

// cleanMatch tidies a captured value: collapse whitespace, drop stray
// colons left by the label patterns.
func cleanMatch(v string) string {
	v = whitespaceRe.ReplaceAllString(v, " ")
	v = strings.Trim(v, ": ")
	return strings.TrimSpace(v)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n bytes, backing off to the nearest rune
// boundary so a multi-byte rune is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
