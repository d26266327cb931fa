package fetcher

import (
	"context"
	"sync"

	"searchlens/pkg/errkind"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserFetcher renders pages in headless Chrome, for sites that build
// their content with scripts. One browser process is shared; each fetch
// opens its own tab.
type BrowserFetcher struct {
	logger        *zap.Logger
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	startOnce sync.Once
	startErr  error
}

func browserOptions(cfg Config) []chromedp.ExecAllocatorOption {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(userAgent),
		chromedp.Flag("accept-language", "en-US,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}
	return opts
}

func NewBrowserFetcher(cfg Config, logger *zap.Logger) *BrowserFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), browserOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return &BrowserFetcher{
		logger:        logger,
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
}

// start launches the browser on first use. The browser lives as long as
// browserCtx, not as long as the first tab.
func (b *BrowserFetcher) start() error {
	b.startOnce.Do(func() {
		b.startErr = chromedp.Run(b.browserCtx)
	})
	return b.startErr
}

func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*RawContent, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	if err := b.start(); err != nil {
		return nil, errkind.New(errkind.Network, "fetch", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, b.cfg.Timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var (
		mu          sync.Mutex
		status      int
		contentType string
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if status == 0 {
			status = int(e.Response.Status)
			contentType = e.Response.MimeType
		}
	})

	var finalURL, domHTML string
	err = chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(u.String()),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &domHTML),
	)
	if err != nil {
		b.logger.Warn("browser_fetch_failed", zap.String("url", rawURL), zap.Error(err))
		if ctx.Err() == nil && tabCtx.Err() != nil {
			return nil, errkind.New(errkind.Network, "fetch", err)
		}
		return nil, transportError(ctx, err)
	}

	mu.Lock()
	gotStatus, gotType := status, contentType
	mu.Unlock()

	if gotStatus != 0 && (gotStatus < 200 || gotStatus > 299) {
		b.logger.Warn("fetch_bad_status",
			zap.String("url", rawURL),
			zap.Int("status_code", gotStatus))
		return nil, errkind.StatusError("fetch", gotStatus)
	}

	b.logger.Debug("browser_fetch_done",
		zap.String("url", rawURL),
		zap.String("final_url", finalURL),
		zap.Int("dom_length", len(domHTML)))

	return &RawContent{
		URL:         rawURL,
		FinalURL:    finalURL,
		Status:      gotStatus,
		ContentType: gotType,
		Body:        []byte(domHTML),
	}, nil
}

// Close shuts the shared browser down.
func (b *BrowserFetcher) Close() {
	b.browserCancel()
	b.allocCancel()
}
