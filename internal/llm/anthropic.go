package llm

import (
	"context"
	"fmt"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/telemetry"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const report_anthropic_ask = "anthropic.ask"

type Anthropic struct {
	client      anthropic.Client
	model       string
	maxDocument int
	tel         telemetry.API
}

func NewAnthropic(options Options, tel telemetry.API) Anthropic {
	assert.NotNil(tel)
	assert.NotEmptyStr(options.Model)

	requestOptions := []option.RequestOption{
		option.WithAPIKey(options.ApiKey),
		option.WithRequestTimeout(options.Timeout),
	}
	if options.BaseUrl != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(options.BaseUrl))
	}

	return Anthropic{
		client:      anthropic.NewClient(requestOptions...),
		model:       options.Model,
		maxDocument: options.MaxDocument,
		tel:         telemetry.NewScopedAPI("llm", tel),
	}
}

func (a Anthropic) Ask(ctx context.Context, document, instruction string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: instruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(truncate(document, a.maxDocument))),
		},
	})
	if err != nil {
		a.tel.ReportBroken(report_anthropic_ask, err, a.model)
		return "", fmt.Errorf("anthropic: %w", err)
	}

	a.tel.ReportDebug(
		"anthropic usage",
		message.Usage.InputTokens,
		message.Usage.OutputTokens,
	)

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: no text content in response")
}
