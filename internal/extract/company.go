package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	leadingArticleRe = regexp.MustCompile(`(?i)^(the|a|an)\s+`)
	legalSuffixRe    = regexp.MustCompile(`(?i)\s*(ltd|inc|corp|llc|co|company|limited)\.?\s*$`)
	nonNameCharsRe   = regexp.MustCompile(`[^\w\s&.\-]`)
	numericOnlyRe    = regexp.MustCompile(`^\d+$`)

	titleCaser = cases.Title(language.English)

	// placeholder strings that look like names but carry no identity.
	nameStoplist = map[string]struct{}{
		"unknown":       {},
		"n/a":           {},
		"not available": {},
		"not specified": {},
		"none":          {},
	}
)

// CleanCompanyName normalizes a raw company-name candidate into its
// canonical form: articles and legal suffixes stripped, punctuation
// reduced to word characters plus &.-, whitespace collapsed, and the
// result title-cased. Returns "" for candidates that fail validation
// (too short, too long, purely numeric, or a known placeholder).
func CleanCompanyName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = leadingArticleRe.ReplaceAllString(name, "")
	name = legalSuffixRe.ReplaceAllString(name, "")
	name = nonNameCharsRe.ReplaceAllString(name, "")
	name = whitespaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	if len(name) < 2 || len(name) > 100 {
		return ""
	}
	if numericOnlyRe.MatchString(name) {
		return ""
	}
	if _, bad := nameStoplist[strings.ToLower(name)]; bad {
		return ""
	}

	return titleCaser.String(strings.ToLower(name))
}

// CompanyCandidates extracts cleaned company names per role from free
// text using the role-specific pattern table entries.
func (e *Extractor) CompanyCandidates(text string) map[string]string {
	norm := normalizeText(text)
	out := make(map[string]string)
	for _, field := range []string{FieldManufacturer, FieldRecallingFirm, FieldDistributor, FieldImporter, FieldSupplier} {
		raw := e.Field(norm, field)
		if raw == "" {
			continue
		}
		if cleaned := CleanCompanyName(raw); cleaned != "" {
			out[field] = cleaned
		}
	}
	return out
}
