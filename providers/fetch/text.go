package fetch

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/leofalp/webresearch/internal/utils"
)

// Elements whose content is never visible text.
var hiddenElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
}

// Inline elements do not break words; every other element does.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "dfn": true, "em": true, "font": true, "i": true,
	"kbd": true, "mark": true, "q": true, "s": true, "samp": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "time": true, "u": true,
	"var": true,
}

// ParseHTML parses r into a document tree.
func ParseHTML(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ExtractText parses an HTML document and returns its visible text with
// whitespace normalised.
func ExtractText(r io.Reader) (string, error) {
	doc, err := ParseHTML(r)
	if err != nil {
		return "", err
	}
	return NodeText(doc), nil
}

// NodeText returns the normalised visible text below n.
func NodeText(n *html.Node) string {
	var b strings.Builder
	writeText(&b, n)
	return utils.NormalizeWhitespace(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if hiddenElements[n.Data] {
			return
		}
		block := !inlineElements[n.Data]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(b, c)
		}
		if block {
			b.WriteByte(' ')
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// RemoveElements detaches every element named in tags from the tree.
func RemoveElements(n *html.Node, tags ...string) {
	drop := make(map[string]bool, len(tags))
	for _, tag := range tags {
		drop[tag] = true
	}
	removeElements(n, drop)
}

func removeElements(n *html.Node, drop map[string]bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && drop[c.Data] {
			n.RemoveChild(c)
		} else {
			removeElements(c, drop)
		}
		c = next
	}
}

// ResultHrefs returns the raw href of every result link on a search results
// page, in document order.
func ResultHrefs(doc *html.Node, engine SearchEngine) []string {
	var hrefs []string

	var inResult func(n *html.Node)
	inResult = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && (engine.LinkClass == "" || hasClass(n, engine.LinkClass)) {
			if href, ok := attr(n, "href"); ok {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			inResult(c)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, engine.ResultClass) {
			inResult(n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return hrefs
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	value, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(value) {
		if c == class {
			return true
		}
	}
	return false
}
