// Package htmlutil reads text out of parsed html nodes.
package htmlutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// TextNodes returns the data of every descendant text node in document order.
func TextNodes(node *html.Node) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return out
}

// GetText concatenates the text nodes under node as is.
func GetText(node *html.Node) string {
	return strings.Join(TextNodes(node), "")
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// VisibleText is the text of a node as a user would read it: non printable
// runes removed, trimmed, inner whitespace collapsed.
func VisibleText(node *html.Node) string {
	text := strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, GetText(node))
	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}
