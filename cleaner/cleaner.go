package cleaner

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Cleaner applies the configured main-content extractor, the tag cleaner
// and the length bound in one step.
type Cleaner struct {
	extractor    Extractor
	sentenceMode bool
	logger       *zap.Logger
}

type Option func(*Cleaner)

func WithExtractor(e Extractor) Option {
	return func(c *Cleaner) { c.extractor = e }
}

// WithSentenceMode keeps only the leading content sentences when at least
// one qualifies.
func WithSentenceMode(enabled bool) Option {
	return func(c *Cleaner) { c.sentenceMode = enabled }
}

func New(logger *zap.Logger, opts ...Option) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cleaner{logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Page cleans a fetched page. Extractor failures fall back to cleaning the
// whole document.
func (c *Cleaner) Page(body []byte, pageURL string, maxLen int) string {
	text := ""
	if c.extractor != nil {
		text = c.extract(body, pageURL)
	}
	if text == "" {
		text = Clean(string(body))
	}
	return c.finish(text, maxLen)
}

// Text cleans caller-supplied page text, which may still carry markup.
func (c *Cleaner) Text(raw string, maxLen int) string {
	return c.finish(Clean(raw), maxLen)
}

func (c *Cleaner) finish(text string, maxLen int) string {
	if c.sentenceMode {
		if s := Sentences(text); s != "" {
			text = s
		}
	}
	return Truncate(Sanitize(text), maxLen)
}

func (c *Cleaner) extract(body []byte, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		c.logger.Warn("extract_url_invalid", zap.String("url", pageURL), zap.Error(err))
		return ""
	}

	doc, err := c.extractor.Extract(body, u)
	if err != nil {
		c.logger.Info("extract_fallback",
			zap.String("url", pageURL),
			zap.String("extractor", c.extractor.Name()),
			zap.Error(err))
		return ""
	}

	var text string
	switch doc.Format {
	case FormatHTML:
		text = Clean(doc.Body)
	case FormatText, FormatMarkdown:
		text = collapse(doc.Body)
	}
	if text == "" {
		return ""
	}
	if doc.Title != "" && !strings.HasPrefix(text, doc.Title) {
		text = doc.Title + ". " + text
	}

	c.logger.Debug("extract_done",
		zap.String("url", pageURL),
		zap.String("extractor", c.extractor.Name()),
		zap.Int("text_length", len(text)))
	return text
}
