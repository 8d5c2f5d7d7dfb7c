package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseFirst(t *testing.T, src, tag string) *html.Node {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	require.NotNil(t, found)
	return found
}

func TestVisibleText(t *testing.T) {
	node := parseFirst(t, "<a>\n\t<i class=\"fa fa-edit\"></i>  TMS​   配置 \n</a>", "a")
	require.Equal(t, "TMS配置", strings.ReplaceAll(VisibleText(node), " ", ""))
	require.Equal(t, "TMS 配置", VisibleText(node))
}

func TestTextNodes(t *testing.T) {
	node := parseFirst(t, "<a>编辑<span>new</span> </a>", "a")
	require.Equal(t, []string{"编辑", "new", " "}, TextNodes(node))
	require.Equal(t, "编辑new ", GetText(node))
}
