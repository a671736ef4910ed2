package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Renderer fetches the fully rendered HTML of a page. The site loads its
// content with JavaScript, so a plain HTTP GET doesn't see the article
// links; anything that can produce the post-render DOM satisfies this.
type Renderer interface {
	HTML(ctx context.Context, url string) (string, error)
}

// Browser is a chromedp-backed Renderer. One headless Chrome instance is
// started up front and shared by every fetch in the run; Close releases it.
type Browser struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	// NavTimeout bounds a single page load; Settle is how long to wait
	// after the load event for scripts to fill in the page.
	NavTimeout time.Duration
	Settle     time.Duration
}

// NewBrowser launches a Chrome instance. With headless false a visible
// window is opened, which helps when debugging selectors.
func NewBrowser(headless bool) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser, so a missing Chrome binary
	// fails here instead of on the first fetch.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Browser{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		NavTimeout:    60 * time.Second,
		Settle:        2 * time.Second,
	}, nil
}

// HTML navigates a fresh tab to url and returns the rendered document.
func (b *Browser) HTML(ctx context.Context, url string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, b.NavTimeout)
	defer timeoutCancel()

	// Tab contexts descend from the browser, not the caller, so wire the
	// caller's cancellation through by hand.
	stop := context.AfterFunc(ctx, timeoutCancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}

	return html, nil
}

// Close shuts down the shared browser instance.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}
