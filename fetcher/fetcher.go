package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"searchlens/pkg/errkind"

	"go.uber.org/zap"
)

// DefaultUserAgent mimics a current desktop Chrome so pages serve their
// regular markup.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RawContent is a fetched page before any cleaning.
type RawContent struct {
	URL         string
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
}

// Fetcher retrieves a page. Failures are *errkind.Error values of kind
// InvalidInput, Network, HTTPStatus or Timeout. Fetchers never retry.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*RawContent, error)
}

type Config struct {
	Backend      string        `yaml:"backend"`
	UserAgent    string        `yaml:"user_agent"`
	ProxyURL     string        `yaml:"proxy_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

func DefaultConfig() Config {
	return Config{
		Backend:      "http",
		UserAgent:    DefaultUserAgent,
		Timeout:      8 * time.Second,
		MaxBodyBytes: 5 << 20,
	}
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errkind.Newf(errkind.InvalidInput, "fetch", "missing url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errkind.New(errkind.InvalidInput, "fetch", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errkind.Newf(errkind.InvalidInput, "fetch", "url %q is not absolute", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errkind.Newf(errkind.InvalidInput, "fetch", "unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

// transportError classifies a failed round trip. An expired caller context
// is a timeout, anything else is a network failure.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return errkind.New(errkind.Timeout, "fetch", err)
		}
		return ctxErr
	}
	return errkind.New(errkind.Network, "fetch", err)
}

// New builds the fetcher selected by cfg.Backend. The returned close
// function releases the backend's resources.
func New(cfg Config, logger *zap.Logger) (Fetcher, func(), error) {
	switch cfg.Backend {
	case "", "http":
		f, err := NewHTTPFetcher(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	case "browser":
		b := NewBrowserFetcher(cfg, logger)
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher backend %q", cfg.Backend)
	}
}
