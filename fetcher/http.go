package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"searchlens/pkg/errkind"

	"go.uber.org/zap"
)

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *zap.Logger
}

// NewHTTPClient builds the pooled client used for page fetches, routed
// through proxyURL when set.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: timeout,
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

func NewHTTPFetcher(cfg Config, logger *zap.Logger) (*HTTPFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewHTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return NewHTTPFetcherWithClient(client, cfg, logger), nil
}

func NewHTTPFetcherWithClient(client *http.Client, cfg Config, logger *zap.Logger) *HTTPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultConfig().MaxBodyBytes
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		maxBody:   maxBody,
		logger:    logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*RawContent, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errkind.New(errkind.InvalidInput, "fetch", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("fetch_failed", zap.String("url", rawURL), zap.Error(err))
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("fetch_bad_status",
			zap.String("url", rawURL),
			zap.Int("status_code", resp.StatusCode))
		return nil, errkind.StatusError("fetch", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	f.logger.Debug("fetch_done",
		zap.String("url", rawURL),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	return &RawContent{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
