// Package extract pulls structured field values out of raw recall page
// text using an ordered pattern table with structural and keyword
// fallbacks. Extraction is best-effort and never returns an error for
// malformed input: a field that cannot be found is simply absent.
package extract

import (
	_ "embed"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Field names produced by the extractor.
const (
	FieldReason            = "reason_for_action"
	FieldManufacturer      = "manufacturer"
	FieldRecallingFirm     = "recalling_firm"
	FieldDistributor       = "distributor"
	FieldImporter          = "importer"
	FieldSupplier          = "supplier"
	FieldProductName       = "product_name"
	FieldProductDesc       = "product_description"
	FieldBatchNumbers      = "batch_numbers"
	FieldManufacturingDate = "manufacturing_date"
	FieldExpiryDate        = "expiry_date"
	FieldCorrectiveAction  = "corrective_action"
)

// fieldSpec is one entry of the declarative pattern table.
type fieldSpec struct {
	MinLen   int      `yaml:"min_len"`
	MaxLen   int      `yaml:"max_len"`
	Patterns []string `yaml:"patterns"`
}

type patternFile struct {
	Fields map[string]fieldSpec `yaml:"fields"`
}

// fieldMatcher holds the compiled patterns for one field.
type fieldMatcher struct {
	minLen   int
	maxLen   int
	patterns []*regexp.Regexp
}

// loadPatternTable parses and compiles the embedded pattern table.
// Pattern order within a field is significant: first match wins.
func loadPatternTable(raw []byte) (map[string]*fieldMatcher, error) {
	var pf patternFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, eris.Wrap(err, "extract: parse pattern table")
	}

	table := make(map[string]*fieldMatcher, len(pf.Fields))
	for name, spec := range pf.Fields {
		fm := &fieldMatcher{minLen: spec.MinLen, maxLen: spec.MaxLen}
		for _, p := range spec.Patterns {
			re, err := regexp.Compile(`(?is)` + p)
			if err != nil {
				return nil, eris.Wrapf(err, "extract: compile pattern for %s", name)
			}
			fm.patterns = append(fm.patterns, re)
		}
		table[name] = fm
	}
	return table, nil
}
