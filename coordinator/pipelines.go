package coordinator

import (
	"context"
	"strings"
	"unicode/utf8"

	"searchlens/cleaner"
	"searchlens/fetcher"
	"searchlens/inference"
	"searchlens/pkg/errkind"
	"searchlens/retry"
	"searchlens/search"

	"go.uber.org/zap"
)

type SummaryResult struct {
	Success bool   `json:"success"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
}

type TopicsResult struct {
	Success bool           `json:"success"`
	Topics  []search.Topic `json:"topics,omitempty"`
	Error   string         `json:"error,omitempty"`
	// Fallback marks a canned topic set served after the model failed.
	Fallback bool `json:"fallback,omitempty"`
}

type ExpandResult struct {
	Expansions string `json:"expansions,omitempty"`
	// Unchanged is set when the refined query has the same stems as the
	// original.
	Unchanged bool   `json:"unchanged,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary summarizes the page at rawURL.
func (c *Coordinator) Summary(ctx context.Context, rawURL string) SummaryResult {
	u, err := fetcher.ValidateURL(strings.TrimSpace(rawURL))
	if err != nil {
		c.logger.Info("summary_rejected", zap.String("url", rawURL), zap.Error(err))
		return SummaryResult{Error: Message(err)}
	}
	target := u.String()

	summary, cached, err := c.request(ctx, "summary:"+NormalizeURL(u), "summary", func(ctx context.Context, t *task) (string, error) {
		return c.summarize(ctx, t, target)
	})
	if err != nil {
		return SummaryResult{Error: Message(err)}
	}
	return SummaryResult{Success: true, Summary: summary, Cached: cached}
}

func (c *Coordinator) summarize(ctx context.Context, t *task, target string) (string, error) {
	t.enter(Fetching)
	raw, err := retry.Do(ctx, t.retryPolicy(), func(ctx context.Context, attempt int) (*fetcher.RawContent, error) {
		return c.fetcher.Fetch(ctx, target)
	})
	if err != nil {
		return "", err
	}

	t.enter(Cleaning)
	pageURL := raw.FinalURL
	if pageURL == "" {
		pageURL = target
	}
	text := c.cleaner.Page(raw.Body, pageURL, c.cfg.SummaryMaxLen)
	if n := utf8.RuneCountInString(text); n < MinSummaryInput {
		return "", errkind.Newf(errkind.InvalidInput, "summary", "content too short for summarization (%d chars)", n)
	}

	t.enter(Inferring)
	return c.infer(ctx, t, inference.SummaryRequest(text))
}

func (c *Coordinator) infer(ctx context.Context, t *task, req inference.Request) (string, error) {
	return retry.Do(ctx, t.retryPolicy(), func(ctx context.Context, attempt int) (string, error) {
		t.logger.Debug("infer_attempt", zap.Int("attempt", attempt))
		return c.inferer.Infer(ctx, req)
	})
}

// Topics suggests five follow-up searches for pageText. Model failures fall
// back to a canned topic set, so only missing input is reported as an
// error.
func (c *Coordinator) Topics(ctx context.Context, pageText string) TopicsResult {
	text := c.cleaner.Text(pageText, c.cfg.TopicsMaxLen)
	if text == "" {
		err := errkind.Newf(errkind.InvalidInput, "topics", "page text is empty")
		return TopicsResult{Error: Message(err)}
	}
	key := "topics:" + Fingerprint(text)

	joined, _, err := c.request(ctx, key, "topics", func(ctx context.Context, t *task) (string, error) {
		t.enter(Inferring)
		return c.infer(ctx, t, inference.TopicsRequest(text))
	})
	if err != nil {
		c.stats.fallbacks.Add(1)
		c.logger.Info("topics_fallback",
			zap.String("key", key),
			zap.String("error_kind", string(errkind.Cause(err))))
		return TopicsResult{
			Success:  true,
			Topics:   search.Google.Topics(DefaultTopics(key)),
			Fallback: true,
		}
	}
	return TopicsResult{Success: true, Topics: search.Google.Topics(inference.SplitTopics(joined))}
}

// ExpandRequest carries the context offered for query refinement.
type ExpandRequest struct {
	Query    string
	Location string
	History  []inference.HistoryItem
}

func (c *Coordinator) Expand(ctx context.Context, req ExpandRequest) ExpandResult {
	query := cleaner.Truncate(strings.TrimSpace(req.Query), c.cfg.QueryMaxLen)
	if query == "" {
		err := errkind.Newf(errkind.InvalidInput, "expand", "query is empty")
		return ExpandResult{Error: Message(err)}
	}

	location := ""
	if inference.NeedsLocation(query) {
		location = strings.TrimSpace(req.Location)
	}
	parts := []string{query, location}
	for _, item := range req.History {
		parts = append(parts, item.URL)
	}
	key := "expand:" + Fingerprint(parts...)

	refined, _, err := c.request(ctx, key, "expand", func(ctx context.Context, t *task) (string, error) {
		t.enter(Inferring)
		return c.infer(ctx, t, inference.ExpandRequest(query, location, req.History))
	})
	if err != nil {
		return ExpandResult{Error: Message(err)}
	}
	return ExpandResult{Expansions: refined, Unchanged: inference.SameQuery(query, refined)}
}
