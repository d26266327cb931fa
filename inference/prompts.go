package inference

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball"
)

const (
	summarySystem = `You write short, factual summaries of web pages.
Summarize the provided content in two or three sentences.
Keep to the main points and leave out navigation, ads and legal notices.`

	topicsSystem = `You analyze web page content and name its key topics.
Always answer in English.
Reply with exactly five topics as a comma-separated list and nothing else.
Example: First Topic, Second Topic, Third Topic, Fourth Topic, Fifth Topic`

	topicsReprompt = "List 5 English topics, separated by commas."

	expandSystem = `You refine web search queries.
Work out the intent behind the user's query and rewrite it as one clear, specific search query.
Reply with the refined query only, without quotes, brackets or explanations.`
)

// SummaryOptions keeps summaries short and stable.
var SummaryOptions = Options{Temperature: 0.3, MaxTokens: 150}

func systemTemplate(kind Kind) string {
	switch kind {
	case Summarize:
		return summarySystem
	case SuggestTopics:
		return topicsSystem
	case ExpandQuery:
		return expandSystem
	default:
		return ""
	}
}

func SummaryRequest(content string) Request {
	return Request{
		Kind:    Summarize,
		Payload: fmt.Sprintf("Summarize this content:\n%s", content),
		Options: SummaryOptions,
	}
}

func TopicsRequest(pageText string) Request {
	return Request{
		Kind:    SuggestTopics,
		Payload: fmt.Sprintf("List the five main topics of this content:\n%s\n\nAnswer only with comma-separated English topics.", pageText),
	}
}

// HistoryItem is a visited page offered as query context.
type HistoryItem struct {
	URL   string
	Title string
}

const maxHistoryContext = 10

// ExpandRequest builds the query refinement request. The location is only
// mentioned when the query asks for something local.
func ExpandRequest(query, location string, history []HistoryItem) Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Refine this search query: %q\n", query)

	if location != "" && NeedsLocation(query) {
		fmt.Fprintf(&b, "The user is located in %s; use it for local intent.\n", location)
	}

	if len(history) > 0 {
		b.WriteString("Recently visited pages:\n")
		for i, item := range history {
			if i == maxHistoryContext {
				break
			}
			label := item.Title
			if label == "" {
				label = item.URL
			}
			fmt.Fprintf(&b, "- %s\n", label)
		}
	}
	b.WriteString("Return only the refined search query.")

	return Request{Kind: ExpandQuery, Payload: b.String()}
}

var locationKeywords = []string{"near", "around", "nearby", "local", "closest", "restaurant", "shop", "store", "weather"}

var locationStems = func() map[string]struct{} {
	stems := make(map[string]struct{}, len(locationKeywords))
	for _, kw := range locationKeywords {
		stems[Stem(kw)] = struct{}{}
	}
	return stems
}()

// NeedsLocation reports whether any word of query shares a stem with a
// location keyword, so "restaurants" and "shopping" count.
func NeedsLocation(query string) bool {
	for _, word := range Words(query) {
		if _, ok := locationStems[Stem(word)]; ok {
			return true
		}
	}
	return false
}

// Stem returns the English snowball stem of word, or word itself when the
// stemmer fails.
func Stem(word string) string {
	stem, err := snowball.Stem(word, "english", true)
	if err != nil || stem == "" {
		return strings.ToLower(word)
	}
	return stem
}

func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}

// SameQuery reports whether two queries reduce to the same stems in order.
func SameQuery(a, b string) bool {
	wa, wb := Words(a), Words(b)
	if len(wa) != len(wb) {
		return false
	}
	for i := range wa {
		if Stem(wa[i]) != Stem(wb[i]) {
			return false
		}
	}
	return true
}
