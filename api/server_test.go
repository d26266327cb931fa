package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"searchlens/coordinator"
	"searchlens/history"
	"searchlens/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	mu        sync.Mutex
	summaries []string
	expands   []coordinator.ExpandRequest
	cleared   int
}

func (f *fakePipeline) Summary(ctx context.Context, rawURL string) coordinator.SummaryResult {
	f.mu.Lock()
	f.summaries = append(f.summaries, rawURL)
	f.mu.Unlock()
	if rawURL == "" {
		return coordinator.SummaryResult{Error: "missing url"}
	}
	return coordinator.SummaryResult{Success: true, Summary: "summary of " + rawURL}
}

func (f *fakePipeline) Topics(ctx context.Context, pageText string) coordinator.TopicsResult {
	return coordinator.TopicsResult{Success: true, Topics: search.Google.Topics([]string{"Go", "Rust"})}
}

func (f *fakePipeline) Expand(ctx context.Context, req coordinator.ExpandRequest) coordinator.ExpandResult {
	f.mu.Lock()
	f.expands = append(f.expands, req)
	f.mu.Unlock()
	return coordinator.ExpandResult{Expansions: req.Query + " tutorial"}
}

func (f *fakePipeline) ClearCache() {
	f.mu.Lock()
	f.cleared++
	f.mu.Unlock()
}

func (f *fakePipeline) Stats() coordinator.Stats {
	return coordinator.Stats{Requests: 7, CacheHits: 3}
}

func (f *fakePipeline) snapshot() ([]string, []coordinator.ExpandRequest, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.summaries...), append([]coordinator.ExpandRequest(nil), f.expands...), f.cleared
}

func newTestServer(t *testing.T, withHistory bool) (*httptest.Server, *fakePipeline, *history.BoltStore) {
	t.Helper()
	pipeline := &fakePipeline{}

	var store *history.BoltStore
	var hs history.Store
	if withHistory {
		var err error
		store, err = history.Open(filepath.Join(t.TempDir(), "history.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		hs = store
	}

	srv := httptest.NewServer(NewServer(pipeline, hs, nil).Router())
	t.Cleanup(srv.Close)
	return srv, pipeline, store
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestMessage_GetSummary(t *testing.T) {
	srv, pipeline, _ := newTestServer(t, false)

	resp, out := do(t, srv, http.MethodPost, "/v1/message", `{"action":"getSummary","url":"https://example.com"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "summary of https://example.com", out["summary"])
	summaries, _, _ := pipeline.snapshot()
	assert.Equal(t, []string{"https://example.com"}, summaries)
}

func TestMessage_PipelineFailureIsStillOK(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	resp, out := do(t, srv, http.MethodPost, "/v1/summary", `{"url":""}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "missing url", out["error"])
}

func TestMessage_TopicsAliases(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	for _, action := range []string{"getRelatedTopics", "getSuggestions"} {
		resp, out := do(t, srv, http.MethodPost, "/v1/message", `{"action":"`+action+`","pageText":"text"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, action)
		topics, ok := out["topics"].([]any)
		require.True(t, ok, action)
		require.Len(t, topics, 2)
		first := topics[0].(map[string]any)
		assert.Equal(t, "Go", first["text"])
		assert.Equal(t, "https://www.google.com/search?q=Go", first["searchUrl"])
	}
}

func TestMessage_InvalidBodies(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	testCases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing action", `{"url":"https://example.com"}`},
		{"unknown action", `{"action":"launchRockets"}`},
		{"wrong field type", `{"action":"getSummary","url":42}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := do(t, srv, http.MethodPost, "/v1/message", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestMessage_ClearCache(t *testing.T) {
	srv, pipeline, _ := newTestServer(t, false)

	resp, _ := do(t, srv, http.MethodPost, "/v1/message", `{"action":"clearCache"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/v1/cache", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, _, cleared := pipeline.snapshot()
	assert.Equal(t, 2, cleared)
}

func TestHistory_WithoutStore(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	_, out := do(t, srv, http.MethodGet, "/v1/history/permission", "")
	assert.Equal(t, false, out["hasPermission"])

	resp, out := do(t, srv, http.MethodGet, "/v1/history", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, out["history"])

	resp, _ = do(t, srv, http.MethodPost, "/v1/history", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistory_RecordAndList(t *testing.T) {
	srv, _, _ := newTestServer(t, true)

	_, out := do(t, srv, http.MethodGet, "/v1/history/permission", "")
	assert.Equal(t, true, out["hasPermission"])

	now := float64(time.Now().UnixMilli())
	older := now - float64(10*time.Minute/time.Millisecond)
	_, out = do(t, srv, http.MethodPost, "/v1/message",
		`{"action":"recordVisit","url":"https://a.example","title":"A","lastVisitTime":`+jsonNumber(older)+`}`)
	assert.Equal(t, true, out["success"])
	_, out = do(t, srv, http.MethodPost, "/v1/history",
		`{"url":"https://b.example","title":"B","lastVisitTime":`+jsonNumber(now)+`}`)
	assert.Equal(t, true, out["success"])

	_, out = do(t, srv, http.MethodGet, "/v1/history?minutes=60&maxItems=1", "")
	items := out["history"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "https://b.example", items[0].(map[string]any)["url"])

	_, out = do(t, srv, http.MethodPost, "/v1/message", `{"action":"getHistory","minutes":5}`)
	items = out["history"].([]any)
	require.Len(t, items, 1)

	resp, _ := do(t, srv, http.MethodGet, "/v1/history?minutes=soon", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExpand_UsesStoredHistoryWhenNoneSent(t *testing.T) {
	srv, pipeline, store := newTestServer(t, true)
	require.NoError(t, store.Record(context.Background(), history.Visit{URL: "https://go.dev", Title: "The Go Programming Language"}))

	_, out := do(t, srv, http.MethodPost, "/v1/expand", `{"query":"generics","location":"Berlin"}`)
	assert.Equal(t, "generics tutorial", out["expansions"])

	_, _ = do(t, srv, http.MethodPost, "/v1/message",
		`{"action":"expandQuery","query":"channels","browserHistory":[{"url":"https://sent.example","title":"Sent"}]}`)

	_, expands, _ := pipeline.snapshot()
	require.Len(t, expands, 2)
	assert.Equal(t, "Berlin", expands[0].Location)
	require.Len(t, expands[0].History, 1)
	assert.Equal(t, "The Go Programming Language", expands[0].History[0].Title)
	require.Len(t, expands[1].History, 1)
	assert.Equal(t, "https://sent.example", expands[1].History[0].URL)
}

func TestStatsAndHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	_, out := do(t, srv, http.MethodGet, "/v1/stats", "")
	assert.Equal(t, float64(7), out["requests"])
	assert.Equal(t, float64(3), out["cacheHits"])

	resp, out := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestDecodeMessage(t *testing.T) {
	testCases := []struct {
		body     string
		expected Message
	}{
		{`{"action":"getSummary","url":"https://x.example"}`, GetSummary{URL: "https://x.example"}},
		{`{"action":"getSuggestions","pageText":"hi"}`, GetTopics{PageText: "hi"}},
		{`{"action":"expandQuery","query":"q","location":"Oslo"}`, ExpandQuery{Query: "q", Location: "Oslo"}},
		{`{"action":"getHistory","maxItems":3}`, GetHistory{MaxItems: 3}},
		{`{"action":"checkHistoryPermission"}`, CheckHistoryPermission{}},
		{`{"action":"clearCache"}`, ClearCache{}},
		{`{"action":"recordVisit","url":"https://x.example","title":"X"}`, RecordVisit{Visit: history.Visit{URL: "https://x.example", Title: "X"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.body, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, msg)
		})
	}

	_, err := DecodeMessage([]byte(`{"action":"nope"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
