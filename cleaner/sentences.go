package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minSentenceLen = 40
	maxSentenceLen = 300
	maxSentences   = 5
)

var (
	sentenceTerminators = regexp.MustCompile(`[.!?]+`)
	sentenceJunk        = []string{"cookie", "menu", "search"}
)

// Sentences keeps the first few content-looking sentences of text: between
// 40 and 299 characters long and free of navigation markers. The result is
// empty when nothing qualifies.
func Sentences(text string) string {
	var kept []string
	for _, s := range sentenceTerminators.Split(text, -1) {
		s = strings.TrimSpace(s)
		n := utf8.RuneCountInString(s)
		if n < minSentenceLen || n >= maxSentenceLen {
			continue
		}
		if containsJunk(s) {
			continue
		}
		kept = append(kept, s)
		if len(kept) == maxSentences {
			break
		}
	}
	return strings.Join(kept, ". ")
}

func containsJunk(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, marker := range sentenceJunk {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
