// Package enrich looks up company background facts from an LLM
// provider. Enrichment is strictly best effort: callers treat a nil
// result or an error as "nothing learned" and move on.
package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/safetyiq/recall-cli/internal/config"
	"github.com/safetyiq/recall-cli/internal/model"
)

// Client enriches one company by name.
type Client interface {
	EnrichCompany(ctx context.Context, name string, companyType model.CompanyType) (*model.Enrichment, error)
}

// New selects the provider once at startup from config.
func New(cfg config.EnrichConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "disabled":
		return Disabled{}, nil
	case "openrouter":
		if cfg.OpenRouterKey == "" {
			return nil, eris.New("enrich: openrouter provider requires an api key")
		}
		var opts []Option
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		return NewOpenRouter(cfg.OpenRouterKey, opts...), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, eris.New("enrich: anthropic provider requires an api key")
		}
		return NewAnthropic(cfg.AnthropicKey, cfg.Model), nil
	default:
		return nil, eris.Errorf("enrich: unknown provider %q", cfg.Provider)
	}
}

// Disabled is the no-op provider.
type Disabled struct{}

// EnrichCompany returns nothing; the caller skips the company.
func (Disabled) EnrichCompany(context.Context, string, model.CompanyType) (*model.Enrichment, error) {
	return nil, nil
}
