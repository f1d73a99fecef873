package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/safetyiq/recall-cli/internal/model"
)

// buildPrompt asks for strict JSON so parseEnrichment can be dumb.
func buildPrompt(name string, companyType model.CompanyType) string {
	return fmt.Sprintf(`You are a company research assistant. Research the company %q, a %s in the pharmaceutical or consumer goods sector, likely based in Ghana or West Africa.

Respond with ONLY a JSON object, no prose, with these keys:
{"founding_date": "YYYY-MM-DD or YYYY or null", "founder_name": "name or null", "brief": "one or two sentence description or null", "country_code": "ISO 3166-1 alpha-2 code or null"}

Use null for anything you do not know. Do not guess.`, name, strings.ToLower(string(companyType)))
}

// enrichmentWire is the JSON shape providers are asked to return.
type enrichmentWire struct {
	FoundingDate string `json:"founding_date"`
	FounderName  string `json:"founder_name"`
	Brief        string `json:"brief"`
	CountryCode  string `json:"country_code"`
}

var foundingLayouts = []string{"2006-01-02", "2006-01", "2006"}

// parseEnrichment extracts the JSON object from a model reply and
// validates each field. Invalid fields degrade to empty, never to an
// error; an unparseable reply is an error.
func parseEnrichment(reply string) (*model.Enrichment, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("enrich: no JSON object in reply: %.80s", reply)
	}

	var wire enrichmentWire
	if err := json.Unmarshal([]byte(reply[start:end+1]), &wire); err != nil {
		return nil, eris.Wrap(err, "enrich: unmarshal reply")
	}

	e := &model.Enrichment{
		FounderName: cleanValue(wire.FounderName),
		Brief:       cleanValue(wire.Brief),
		CountryCode: cleanCountryCode(wire.CountryCode),
	}
	if d := cleanValue(wire.FoundingDate); d != "" {
		for _, layout := range foundingLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				e.FoundingDate = &t
				break
			}
		}
	}
	return e, nil
}

// cleanValue drops the null-ish strings models emit instead of JSON null.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "unknown", "n/a":
		return ""
	}
	return s
}

func cleanCountryCode(s string) string {
	s = strings.ToUpper(cleanValue(s))
	if len(s) != 2 {
		return ""
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return s
}

// Empty reports whether an enrichment carries no facts at all.
func Empty(e *model.Enrichment) bool {
	return e == nil || (e.FoundingDate == nil && e.FounderName == "" && e.Brief == "" && e.CountryCode == "")
}
