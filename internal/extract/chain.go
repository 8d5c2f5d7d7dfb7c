package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"tmsassist/internal/components/telemetry"
)

const (
	report_chain_fallback = "chain.fallback"
)

// Extractor finds a target inside a raw page body.
type Extractor interface {
	Extract(ctx context.Context, body []byte, target Target) (string, bool)
}

// Asker answers a natural language instruction about a document. Answers are
// untrusted and non-deterministic.
type Asker interface {
	Ask(ctx context.Context, document, instruction string) (string, error)
}

// Structural is the deterministic Extractor.
type Structural struct{}

func (Structural) Extract(_ context.Context, body []byte, target Target) (string, bool) {
	return ExtractHTML(body, target)
}

var instructions = map[Target]string{
	EditLink:      "Reply with the URL of the link labelled \"编辑\" (edit). Reply with the URL only, nothing else.",
	ConfigLink:    "Reply with the URL of the link labelled \"TMS配置\" (TMS config). Reply with the URL only, nothing else.",
	Token:         "Reply with the value of the token (权限认证) input field. Reply with the value only, nothing else.",
	LatestOrderId: "Find the newest work order row and reply with the value of the id query parameter of its detail button URL. Reply with the digits only, nothing else.",
}

// Chain tries structural extraction first and only asks the fallback when the
// target is structurally absent. Fallback answers go through the same
// validation a scraped value would need before they are returned.
type Chain struct {
	fallback     Asker
	allowedHosts []string
	tel          telemetry.API
}

// NewChain creates a Chain, fallback may be nil in which case Chain behaves
// exactly like Structural. Absolute links returned by the fallback must point
// at one of allowedHosts.
func NewChain(fallback Asker, allowedHosts []string, tel telemetry.API) Chain {
	return Chain{
		fallback:     fallback,
		allowedHosts: allowedHosts,
		tel:          telemetry.NewScopedAPI("extract", tel),
	}
}

func (c Chain) Extract(ctx context.Context, body []byte, target Target) (string, bool) {
	value, ok := ExtractHTML(body, target)
	if ok || c.fallback == nil {
		return value, ok
	}

	c.tel.ReportDebug("structural extraction missed, asking fallback", target.String())

	answer, err := c.fallback.Ask(ctx, string(body), instructions[target])
	if err != nil {
		c.tel.ReportWarning(
			report_chain_fallback,
			fmt.Errorf("ask: %w", err),
			target.String(),
		)
		return "", false
	}

	value, err = c.validate(target, answer)
	if err != nil {
		c.tel.ReportWarning(
			report_chain_fallback,
			fmt.Errorf("validate: %w", err),
			target.String(),
			answer,
		)
		return "", false
	}
	return value, true
}

var digitsPattern = regexp.MustCompile(`^\d+$`)

func cleanAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	answer = strings.Trim(answer, "`\"'<>")
	return strings.TrimSpace(answer)
}

func (c Chain) validate(target Target, answer string) (string, error) {
	answer = cleanAnswer(answer)
	if answer == "" {
		return "", fmt.Errorf("empty answer")
	}

	switch target {
	case EditLink, ConfigLink:
		return c.validateLink(answer)
	case Token:
		if strings.ContainsFunc(answer, func(r rune) bool {
			return r == ' ' || r == '\n' || r == '\t' || r == '\r'
		}) {
			return "", fmt.Errorf("token contains whitespace")
		}
		if len(answer) > 512 {
			return "", fmt.Errorf("token is too long (%d)", len(answer))
		}
		return answer, nil
	case LatestOrderId:
		if digitsPattern.MatchString(answer) {
			return answer, nil
		}
		groups := orderIdPattern.FindStringSubmatch(answer)
		if len(groups) < 2 {
			return "", fmt.Errorf("not an order id")
		}
		return groups[1], nil
	}
	return "", fmt.Errorf("unknown target %d", target)
}

func (c Chain) validateLink(answer string) (string, error) {
	if strings.ContainsAny(answer, " \n\t") {
		return "", fmt.Errorf("link contains whitespace")
	}
	parsed, err := url.Parse(answer)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	if !parsed.IsAbs() {
		if parsed.Path == "" && parsed.RawQuery == "" {
			return "", fmt.Errorf("link has no path")
		}
		return answer, nil
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unexpected scheme '%s'", parsed.Scheme)
	}
	for _, host := range c.allowedHosts {
		if parsed.Host == host {
			return answer, nil
		}
	}
	return "", fmt.Errorf("host '%s' is not the portal", parsed.Host)
}
