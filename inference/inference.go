package inference

import (
	"context"
	"errors"
	"strings"

	"searchlens/pkg/errkind"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

type Kind int

const (
	Summarize Kind = iota
	SuggestTopics
	ExpandQuery
)

func (k Kind) String() string {
	switch k {
	case Summarize:
		return "summarize"
	case SuggestTopics:
		return "suggest_topics"
	case ExpandQuery:
		return "expand_query"
	default:
		return "unknown"
	}
}

type Options struct {
	Temperature float64
	MaxTokens   int
}

// Request is one model invocation. An empty System uses the kind's template.
type Request struct {
	Kind    Kind
	System  string
	Payload string
	Options Options
}

// Client runs requests against a langchaingo model and validates the reply
// for the request kind. It neither caches nor retries.
type Client struct {
	model  llms.Model
	logger *zap.Logger
}

func NewClient(model llms.Model, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{model: model, logger: logger}
}

// Infer returns validated text or an *errkind.Error of kind
// UnsupportedLanguage, InvalidResponse, BackendUnavailable or Timeout.
func (c *Client) Infer(ctx context.Context, req Request) (string, error) {
	system := req.System
	if system == "" {
		system = systemTemplate(req.Kind)
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Payload),
	}

	answer, err := c.generate(ctx, messages, req.Options)
	if err != nil {
		return "", err
	}

	switch req.Kind {
	case Summarize:
		return validateSummary(answer)
	case SuggestTopics:
		if topics, ok := ParseTopics(answer); ok {
			return JoinTopics(topics), nil
		}
		c.logger.Info("topics_reprompt", zap.String("answer", answer))

		// Same session: the first answer stays in the history.
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeAI, answer),
			llms.TextParts(llms.ChatMessageTypeHuman, topicsReprompt),
		)
		retry, err := c.generate(ctx, messages, req.Options)
		if err != nil {
			return "", err
		}
		if topics, ok := ParseTopics(retry); ok {
			return JoinTopics(topics), nil
		}
		return "", errkind.Newf(errkind.InvalidResponse, "infer", "topics reply %q is not a list of five", retry)
	case ExpandQuery:
		return validateExpansion(answer)
	default:
		return "", errkind.Newf(errkind.InvalidInput, "infer", "unknown request kind %d", int(req.Kind))
	}
}

func (c *Client) generate(ctx context.Context, messages []llms.MessageContent, opts Options) (string, error) {
	var callOpts []llms.CallOption
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		c.logger.Warn("model_call_failed", zap.Error(err))
		return "", classify(ctx, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", errkind.Newf(errkind.InvalidResponse, "infer", "model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

var languageMarkers = []string{"unsupported language", "untested language", "language not supported", "language is not supported"}

// classify maps a backend failure onto the error taxonomy.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return errkind.New(errkind.Timeout, "infer", err)
		}
		return ctxErr
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range languageMarkers {
		if strings.Contains(msg, marker) {
			return errkind.New(errkind.UnsupportedLanguage, "infer", err)
		}
	}
	return errkind.New(errkind.BackendUnavailable, "infer", err)
}
