// Package llm answers questions about portal pages with a language model.
// It is only ever used as a fallback when a page does not have the
// structure the extract package expects.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"tmsassist/internal/components/telemetry"
)

const (
	ProviderNone      = ""
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOpenAIBaseUrl  = "https://api.openai.com/v1"
	defaultMaxTokens      = 256
	defaultMaxDocument    = 120_000
	defaultTimeout        = 60 * time.Second
)

type Options struct {
	Provider string
	Model    string
	// BaseUrl overrides the provider endpoint, any OpenAI compatible
	// chat completions endpoint works for the openai provider.
	BaseUrl string
	ApiKey  string
	// MaxDocument truncates documents longer than this many bytes.
	MaxDocument int
	Timeout     time.Duration
}

// Asker is satisfied by every provider, it matches extract.Asker.
type Asker interface {
	Ask(ctx context.Context, document, instruction string) (string, error)
}

// New returns the provider selected by options, or nil when no provider is
// configured.
func New(options Options, tel telemetry.API) (Asker, error) {
	if options.MaxDocument <= 0 {
		options.MaxDocument = defaultMaxDocument
	}
	if options.Timeout <= 0 {
		options.Timeout = defaultTimeout
	}

	switch strings.ToLower(options.Provider) {
	case ProviderNone:
		return nil, nil
	case ProviderAnthropic:
		if options.ApiKey == "" {
			return nil, fmt.Errorf("llm: anthropic provider needs an api key")
		}
		if options.Model == "" {
			options.Model = defaultAnthropicModel
		}
		return NewAnthropic(options, tel), nil
	case ProviderOpenAI:
		if options.Model == "" {
			options.Model = defaultOpenAIModel
		}
		if options.BaseUrl == "" {
			options.BaseUrl = defaultOpenAIBaseUrl
		}
		return NewOpenAI(options, tel), nil
	}
	return nil, fmt.Errorf("llm: unsupported provider '%s'", options.Provider)
}

// truncate cuts document to at most max bytes without splitting a rune.
func truncate(document string, max int) string {
	if len(document) <= max {
		return document
	}
	cut := max
	for cut > 0 && !isRuneStart(document[cut]) {
		cut--
	}
	return document[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
