package enrich

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/safetyiq/recall-cli/internal/model"
)

const defaultAnthropicModel = "claude-haiku-4-5-20251001"

type anthropicClient struct {
	client sdk.Client
	model  string
}

// NewAnthropic creates an enrichment client backed by the official
// Anthropic SDK. Extra request options are mainly for tests.
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) Client {
	if model == "" {
		model = defaultAnthropicModel
	}
	allOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &anthropicClient{
		client: sdk.NewClient(allOpts...),
		model:  model,
	}
}

func (c *anthropicClient) EnrichCompany(ctx context.Context, name string, companyType model.CompanyType) (*model.Enrichment, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 1024,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildPrompt(name, companyType))),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		reply.WriteString(block.Text)
	}
	return parseEnrichment(reply.String())
}
