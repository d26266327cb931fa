package cleaner

import "strings"

const Ellipsis = "..."

// Truncate bounds text to maxLen characters. When the cut text holds a
// period at or beyond 80% of maxLen it ends there; otherwise the hard cut
// gets an ellipsis.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	cut := string(runes[:maxLen])
	lastPeriod := strings.LastIndex(cut, ".")
	if lastPeriod >= 0 && len([]rune(cut[:lastPeriod])) >= maxLen*8/10 {
		return cut[:lastPeriod+1]
	}
	return strings.TrimRightFunc(cut, isSpace) + Ellipsis
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
