package inference

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"searchlens/pkg/errkind"
)

const (
	minSummaryLen = 10
	TopicCount    = 5
)

var (
	topicPattern   = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)
	listMarker     = regexp.MustCompile(`(?m)^\s*(\d+[.)]|[-*•])\s+`)
	topicStrip     = regexp.MustCompile(`[^A-Za-z0-9,\n ]`)
	topicSplit     = regexp.MustCompile(`[,\n]`)
	expansionTrims = "\"'`“”[](){}<>"
)

func validateSummary(answer string) (string, error) {
	if utf8.RuneCountInString(answer) < minSummaryLen {
		return "", errkind.Newf(errkind.InvalidResponse, "infer", "summary %q is too short", answer)
	}
	return answer, nil
}

// ParseTopics accepts exactly five topics after stripping characters other
// than letters, digits and spaces.
func ParseTopics(answer string) ([]string, bool) {
	cleaned := listMarker.ReplaceAllString(answer, "")
	cleaned = topicStrip.ReplaceAllString(cleaned, " ")
	var topics []string
	for _, part := range topicSplit.Split(cleaned, -1) {
		topic := strings.Join(strings.Fields(part), " ")
		if topic == "" {
			continue
		}
		if !topicPattern.MatchString(topic) {
			return nil, false
		}
		topics = append(topics, topic)
	}
	if len(topics) != TopicCount {
		return nil, false
	}
	return topics, true
}

func JoinTopics(topics []string) string {
	return strings.Join(topics, ", ")
}

// SplitTopics reverses JoinTopics.
func SplitTopics(text string) []string {
	var topics []string
	for _, part := range strings.Split(text, ",") {
		if topic := strings.TrimSpace(part); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}

func validateExpansion(answer string) (string, error) {
	refined := strings.TrimSpace(answer)
	if i := strings.IndexByte(refined, '\n'); i >= 0 {
		refined = strings.TrimSpace(refined[:i])
	}
	refined = strings.TrimSpace(strings.Trim(refined, expansionTrims))
	if refined == "" {
		return "", errkind.Newf(errkind.InvalidResponse, "infer", "empty query expansion")
	}
	return refined, nil
}
