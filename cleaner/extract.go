package cleaner

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

type Format int

const (
	FormatHTML Format = iota
	FormatText
	FormatMarkdown
)

// Document is the main content of a page as chosen by an Extractor.
type Document struct {
	Title  string
	Body   string
	Format Format
}

// Extractor narrows a page down to its main content before cleaning.
type Extractor interface {
	Name() string
	Extract(body []byte, pageURL *url.URL) (Document, error)
}

var errNoContent = errors.New("no main content found")

// NewExtractor returns the extractor registered under name. The "tags" mode
// has no extractor and yields nil.
func NewExtractor(name string) (Extractor, error) {
	switch name {
	case "", "tags":
		return nil, nil
	case "readability":
		return ReadabilityExtractor{}, nil
	case "trafilatura":
		return TrafilaturaExtractor{}, nil
	case "trafilatura-markdown":
		return TrafilaturaExtractor{Markdown: true}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Name() string { return "readability" }

func (ReadabilityExtractor) Extract(body []byte, pageURL *url.URL) (Document, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("readability: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Document{}, errNoContent
	}
	return Document{Title: article.Title, Body: text, Format: FormatText}, nil
}

// TrafilaturaExtractor renders the extracted content node as HTML, or as
// Markdown when Markdown is set.
type TrafilaturaExtractor struct {
	Markdown bool
}

func (e TrafilaturaExtractor) Name() string {
	if e.Markdown {
		return "trafilatura-markdown"
	}
	return "trafilatura"
}

func (e TrafilaturaExtractor) Extract(body []byte, pageURL *url.URL) (Document, error) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL: pageURL,
	})
	if err != nil {
		return Document{}, fmt.Errorf("trafilatura: %w", err)
	}
	if result == nil {
		return Document{}, errNoContent
	}

	doc := Document{Title: result.Metadata.Title}
	if result.ContentNode == nil {
		if strings.TrimSpace(result.ContentText) == "" {
			return Document{}, errNoContent
		}
		doc.Body = result.ContentText
		doc.Format = FormatText
		return doc, nil
	}

	rendered, err := renderNode(result.ContentNode)
	if err != nil {
		return Document{}, err
	}
	if !e.Markdown {
		doc.Body = rendered
		doc.Format = FormatHTML
		return doc, nil
	}

	md, err := htmltomarkdown.ConvertString(rendered)
	if err != nil {
		return Document{}, fmt.Errorf("markdown conversion: %w", err)
	}
	doc.Body = md
	doc.Format = FormatMarkdown
	return doc, nil
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
