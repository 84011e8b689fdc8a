package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/user/daraz-scraper/config"
)

// BrowserBackend fetches pages through headless Chrome so client-rendered
// listings still produce markup. It is far more expensive than HTTPBackend
// and is meant to run only as a fallback.
type BrowserBackend struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
}

// NewBrowserBackend starts a shared Chrome exec allocator. Call Close to
// release it.
func NewBrowserBackend(cfg *config.Config) *BrowserBackend {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserBackend{
		allocCtx: allocCtx,
		cancel:   cancel,
		timeout:  cfg.BrowserTimeout,
	}
}

// Name identifies the backend in logs and metrics.
func (b *BrowserBackend) Name() string {
	return "browser"
}

// Get navigates a fresh tab to rawURL, waits for the body to be ready, and
// returns the rendered document. The page is abandoned when ctx is
// cancelled.
func (b *BrowserBackend) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	taskCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	if b.timeout > 0 {
		var timeoutCancel context.CancelFunc
		taskCtx, timeoutCancel = context.WithTimeout(taskCtx, b.timeout)
		defer timeoutCancel()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("render %s: %w", rawURL, classifyError(err, 0))
	}

	return []byte(html), nil
}

// Close shuts the shared Chrome allocator down.
func (b *BrowserBackend) Close() {
	b.cancel()
}
