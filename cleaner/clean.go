package cleaner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// boilerplateSelector lists the blocks dropped together with their content.
// noscript is parsed as raw text, so it goes too.
const boilerplateSelector = "script, style, noscript, nav, footer, header, aside"

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	entityPattern = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)
)

// Clean turns raw HTML into a single line of plain text. Boilerplate blocks
// and comments are removed, every tag becomes a space, entities and
// whitespace runs collapse to single spaces.
func Clean(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return collapse(tagPattern.ReplaceAllString(rawHTML, " "))
	}

	doc.Find(boilerplateSelector).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	return collapse(b.String())
}

// writeText appends text nodes depth first, separating elements by a space.
// Comment and doctype nodes are skipped.
func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if n.Type == html.ElementNode {
		b.WriteByte(' ')
	}
}

// collapse replaces leftover entity text with spaces and folds whitespace.
func collapse(s string) string {
	s = entityPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
