package llm

import (
	"context"
	"fmt"
	"strings"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_openai_ask = "openai.ask"

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenAI talks to an OpenAI compatible chat completions endpoint.
type OpenAI struct {
	http        *resty.Client
	model       string
	maxDocument int
	tel         telemetry.API
}

func NewOpenAI(options Options, tel telemetry.API) OpenAI {
	assert.NotNil(tel)
	assert.NotEmptyStr(options.Model)
	assert.NotEmptyStr(options.BaseUrl)

	tel = telemetry.NewScopedAPI("llm", tel)

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(options.BaseUrl, "/"))
	client.SetTimeout(options.Timeout)
	client.SetHeader("content-type", "application/json")
	if options.ApiKey != "" {
		client.SetAuthToken(options.ApiKey)
	}
	telemetry.InstrumentResty(client, tel)

	return OpenAI{
		http:        client,
		model:       options.Model,
		maxDocument: options.MaxDocument,
		tel:         tel,
	}
}

func (o OpenAI) Ask(ctx context.Context, document, instruction string) (string, error) {
	var body openAIResponse
	res, err := o.http.R().
		SetContext(ctx).
		SetBody(openAIRequest{
			Model: o.model,
			Messages: []openAIMessage{
				{Role: "system", Content: instruction},
				{Role: "user", Content: truncate(document, o.maxDocument)},
			},
			MaxTokens: defaultMaxTokens,
		}).
		SetResult(&body).
		SetError(&body).
		Post("/chat/completions")
	if err != nil {
		o.tel.ReportBroken(report_openai_ask, fmt.Errorf("fetch: %w", err), o.model)
		return "", fmt.Errorf("openai: %w", err)
	}
	if body.Error != nil {
		return "", fmt.Errorf("openai: %s", body.Error.Message)
	}
	if res.IsError() {
		return "", fmt.Errorf("openai: http status %d", res.StatusCode())
	}
	if len(body.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return body.Choices[0].Message.Content, nil
}
