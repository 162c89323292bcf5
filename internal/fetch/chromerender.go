package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer renders a page in a headless Chrome instance and returns
// the fully hydrated DOM, for pages the plain HTTP fetch can't see through
// (the rendered-mode fallback for JS-heavy pages).
type ChromeRenderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewChromeRenderer starts a shared headless Chrome allocator. Call Close
// when the crawl finishes to tear down the browser process.
func NewChromeRenderer() *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{allocCtx: allocCtx, cancel: cancel}
}

// Render navigates to url in a fresh browser tab, waits for the body to be
// ready plus a further 2s for late script changes, and returns its outer
// HTML. The caller's ctx is honored for
// cancellation in addition to timeout.
func (c *ChromeRenderer) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(c.allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	done := make(chan struct{})
	var html string
	var runErr error
	go func() {
		defer close(done)
		runErr = chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(2*time.Second),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	}()

	select {
	case <-ctx.Done():
		cancelTab()
		<-done
		return "", fmt.Errorf("chromerender: render %s: %w", url, ctx.Err())
	case <-done:
	}
	if runErr != nil {
		return "", fmt.Errorf("chromerender: render %s: %w", url, runErr)
	}
	return html, nil
}

// Close tears down the shared headless Chrome process.
func (c *ChromeRenderer) Close() {
	c.cancel()
}
