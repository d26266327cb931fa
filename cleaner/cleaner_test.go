package cleaner

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClean(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"blank", "   \n\t ", ""},
		{"plain", "hello   world", "hello world"},
		{
			"boilerplate blocks",
			`<html><head><style>p{color:red}</style><script>var x = "<p>";</script></head>
			<body><HEADER>Site header</HEADER><NAV><a href="/">Home</a></NAV>
			<p>First <b>bold</b> para.</p><aside>ads</aside><footer>(c) 2024</footer></body></html>`,
			"First bold para.",
		},
		{"comments", "<p>keep<!-- drop me --> this</p>", "keep this"},
		{"tags become spaces", "<p>one</p><p>two</p><br>three", "one two three"},
		{"entities", "<p>fish&nbsp;&amp;&nbsp;chips &amp;copy;</p>", "fish & chips"},
		{"nested removal", "<div><nav><ul><li>menu</li></ul></nav><article>Body text</article></div>", "Body text"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Clean(tc.input))
		})
	}
}

func TestSentences(t *testing.T) {
	long := "This sentence is comfortably longer than forty characters in total"
	junk := "Please accept our cookie settings before continuing to read further"
	short := "Too short"

	text := strings.Join([]string{short, long, junk, long + " again", strings.Repeat("x", 300)}, ". ")
	got := Sentences(text)

	assert.Equal(t, long+". "+long+" again", got)
	assert.Equal(t, "", Sentences("tiny. bits. only."))
}

func TestSentences_TakesFirstFive(t *testing.T) {
	var parts []string
	for i := 0; i < 8; i++ {
		parts = append(parts, "Sentence number "+string(rune('A'+i))+" carries enough characters to qualify")
	}
	got := Sentences(strings.Join(parts, ". "))
	assert.Equal(t, 5, len(strings.Split(got, ". ")))
	assert.True(t, strings.HasPrefix(got, parts[0]))
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		max      int
		expected string
	}{
		{"fits", "short text", 20, "short text"},
		{"late period", "aaaaaaaaa. bbbbbbbb", 12, "aaaaaaaaa."},
		{"early period", "aa. bbbbbbbbbbbbbbbbbbbbbbb", 12, "aa. bbbbbbbb..."},
		{"no period", "abcdefghijklmnop", 10, "abcdefghij..."},
		{"multibyte", "ééééééééééé", 5, "ééééé..."},
		{"no limit", "anything", 0, "anything"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Truncate(tc.text, tc.max))
		})
	}
}

func TestTruncate_BoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		max := rapid.IntRange(1, 200).Draw(t, "max")

		got := Truncate(text, max)
		if !utf8.ValidString(text) {
			return
		}
		if !utf8.ValidString(got) {
			t.Fatalf("invalid utf8 output %q", got)
		}
		if n := utf8.RuneCountInString(got); n > max+len(Ellipsis) {
			t.Fatalf("output has %d runes, limit %d", n, max)
		}
	})
}

func TestSanitize(t *testing.T) {
	in := "Read more at https://example.com/x?y=1 now. We use a Cookie Policy! ★ Café — 42 items"
	assert.Equal(t, "Read more at now. We use a ! Café 42 items", Sanitize(in))
	assert.Equal(t, "", Sanitize(""))
}

type stubExtractor struct {
	doc Document
	err error
}

func (s stubExtractor) Name() string { return "stub" }

func (s stubExtractor) Extract([]byte, *url.URL) (Document, error) {
	return s.doc, s.err
}

func TestCleaner_Page(t *testing.T) {
	page := []byte("<html><body><nav>menu</nav><p>Whole page body text.</p></body></html>")

	plain := New(nil)
	assert.Equal(t, "Whole page body text.", plain.Page(page, "https://example.com", 1000))

	withTitle := New(nil, WithExtractor(stubExtractor{doc: Document{Title: "Title", Body: "<p>Main <i>content</i></p>", Format: FormatHTML}}))
	assert.Equal(t, "Title. Main content", withTitle.Page(page, "https://example.com", 1000))

	failing := New(nil, WithExtractor(stubExtractor{err: errors.New("nope")}))
	assert.Equal(t, "Whole page body text.", failing.Page(page, "https://example.com", 1000))

	text := New(nil, WithExtractor(stubExtractor{doc: Document{Body: "line one\n\n  line two", Format: FormatMarkdown}}))
	assert.Equal(t, "line one line two", text.Page(page, "https://example.com", 1000))
}

func TestCleaner_SentenceMode(t *testing.T) {
	c := New(nil, WithSentenceMode(true))
	sentence := "This sentence is comfortably longer than forty characters in total"
	got := c.Text("<p>Menu. "+sentence+". Tiny.</p>", 1000)
	assert.Equal(t, sentence, got)

	fallback := c.Text("<p>Only short bits here.</p>", 1000)
	assert.Equal(t, "Only short bits here.", fallback)
}

func TestNewExtractor(t *testing.T) {
	e, err := NewExtractor("tags")
	require.NoError(t, err)
	assert.Nil(t, e)

	for _, name := range []string{"readability", "trafilatura", "trafilatura-markdown"} {
		e, err := NewExtractor(name)
		require.NoError(t, err)
		assert.Equal(t, name, e.Name())
	}

	_, err = NewExtractor("magic")
	assert.Error(t, err)
}
