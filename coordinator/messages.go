package coordinator

import "searchlens/pkg/errkind"

var friendlyMessages = map[errkind.Kind]string{
	errkind.InvalidInput:        "The request is missing something we need. Check the input and try again.",
	errkind.Network:             "Couldn't reach the page. Check your connection and try again.",
	errkind.HTTPStatus:          "The page couldn't be loaded right now.",
	errkind.UnsupportedLanguage: "Summaries aren't available for this page's language yet.",
	errkind.InvalidResponse:     "The AI gave an unexpected answer. Please try again.",
	errkind.BackendUnavailable:  "The AI service isn't available right now. Please try again later.",
	errkind.Timeout:             "This is taking too long. Please try again.",
	errkind.Unknown:             "Something went wrong. Please try again.",
}

// Message turns a terminal pipeline error into the text shown to users.
// Exhausted retries report their last cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := friendlyMessages[errkind.Cause(err)]; ok {
		return msg
	}
	return friendlyMessages[errkind.Unknown]
}
