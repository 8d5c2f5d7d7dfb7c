// Package extract locates the values the ticket workflow needs inside portal
// pages. Every locator is a constant, an invalid one panics at init.
package extract

import (
	"bytes"
	"regexp"
	"strings"
	"tmsassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

type Target int

const (
	// EditLink is the "编辑" button on the counterpart lookup page.
	EditLink Target = iota
	// ConfigLink is the "TMS配置" button on the edit page.
	ConfigLink
	// Token is the hidden token input on the config page.
	Token
	// LatestOrderId is the id of the newest work order on the list page.
	LatestOrderId
)

func (t Target) String() string {
	switch t {
	case EditLink:
		return "edit-link"
	case ConfigLink:
		return "config-link"
	case Token:
		return "token"
	case LatestOrderId:
		return "latest-order-id"
	}
	return "unknown"
}

type locator struct {
	matcher cascadia.Selector
	label   string
	attr    string
	pattern *regexp.Regexp
}

var orderIdPattern = regexp.MustCompile(`id=(\d+)`)

var locators = map[Target]locator{
	EditLink: {
		matcher: cascadia.MustCompile("a.btn.btn-info.btn-xs.m-bot5"),
		label:   "编辑",
		attr:    "href",
	},
	ConfigLink: {
		matcher: cascadia.MustCompile("a.btn.btn-default.not-cinema"),
		label:   "TMS配置",
		attr:    "href",
	},
	Token: {
		matcher: cascadia.MustCompile(`input[name="token"]`),
		attr:    "value",
	},
	LatestOrderId: {
		// the portal lists work orders newest first
		matcher: cascadia.MustCompile("tbody tr:first-child a.btn-info"),
		attr:    "href",
		pattern: orderIdPattern,
	},
}

// Extract returns the value of target inside doc, the second return value is
// false when the page does not contain it.
func Extract(doc *goquery.Document, target Target) (string, bool) {
	loc, ok := locators[target]
	if !ok {
		panic("extract: no locator for target " + target.String())
	}

	if loc.label != "" {
		return findLabeled(doc, loc)
	}

	value, ok := doc.FindMatcher(loc.matcher).First().Attr(loc.attr)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if loc.pattern == nil {
		return value, true
	}

	groups := loc.pattern.FindStringSubmatch(value)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

func findLabeled(doc *goquery.Document, loc locator) (string, bool) {
	for _, node := range doc.FindMatcher(loc.matcher).Nodes {
		if !hasLabel(node, loc.label) {
			continue
		}
		href := strings.TrimSpace(attr(node, loc.attr))
		if href == "" {
			continue
		}
		return href, true
	}
	return "", false
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasLabel(node *html.Node, label string) bool {
	if htmlutil.VisibleText(node) == label {
		return true
	}
	for _, text := range htmlutil.TextNodes(node) {
		if strings.TrimSpace(text) == label {
			return true
		}
	}
	return false
}

// ExtractHTML parses body and extracts target from it, an unparsable body
// counts as the target not being present.
func ExtractHTML(body []byte, target Target) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return "", false
	}
	return Extract(doc, target)
}
