package search

import (
	"net/url"
	"strings"
)

// Engine turns a query into a results page URL.
type Engine struct {
	Name    string
	BaseURL string
	Param   string
}

var Google = Engine{
	Name:    "Google",
	BaseURL: "https://www.google.com/search",
	Param:   "q",
}

// URL returns the results page for query, e.g.
// https://www.google.com/search?q=go+channels.
func (e Engine) URL(query string) string {
	return e.BaseURL + "?" + e.Param + "=" + url.QueryEscape(strings.TrimSpace(query))
}

// Topic is a suggested follow-up search.
type Topic struct {
	Text      string `json:"text"`
	SearchURL string `json:"searchUrl"`
}

func (e Engine) Topics(texts []string) []Topic {
	topics := make([]Topic, 0, len(texts))
	for _, text := range texts {
		topics = append(topics, Topic{Text: text, SearchURL: e.URL(text)})
	}
	return topics
}
