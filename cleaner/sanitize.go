package cleaner

import (
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	noticePattern  = regexp.MustCompile(`(?i)cookie policy|accept cookies|privacy policy|terms of use`)
	specialPattern = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?'-]`)
)

// Sanitize prepares already extracted text for a model prompt: markup,
// URLs, consent notices and decorative symbols are dropped.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = tagPattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, " ")
	text = noticePattern.ReplaceAllString(text, " ")
	text = specialPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
