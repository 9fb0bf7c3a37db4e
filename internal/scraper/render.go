package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// DOM-stabilization parameters, tuned for SPA news sites that mount content
// after load.
const (
	stableMinTextLen   = 700
	stableSettleChecks = 3
	stableMaxDelta     = 30
	stablePollInterval = 600 * time.Millisecond
	stableTimeout      = 25 * time.Second
	renderPageTimeout  = 60 * time.Second
)

// Renderer drives a headless browser for pages whose content only exists
// after client-side rendering. One Renderer serves a whole collection run.
type Renderer struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func NewRenderer(parent context.Context, headless bool, userAgent string) (*Renderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(1280, 2400),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	return &Renderer{ctx: ctx, cancelCtx: cancelCtx, cancelAlloc: cancelAlloc}, nil
}

// Close shuts the browser down. Safe to call on every exit path.
func (r *Renderer) Close() {
	r.cancelCtx()
	r.cancelAlloc()
}

// FetchHTML navigates to url, waits for the DOM text to stabilize, and
// returns the rendered document. When the top-level document is still short,
// accessible iframe documents are concatenated onto the result.
func (r *Renderer) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	runCtx, cancel := context.WithTimeout(r.ctx, renderPageTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// nudge lazy loaders
			_ = chromedp.Evaluate(`window.scrollTo(0, 600)`, nil).Do(ctx)
			_ = chromedp.Evaluate(`window.scrollTo(0, 0)`, nil).Do(ctx)

			if !waitStableDOM(ctx) {
				log.Printf("[render] DOM did not stabilize for %s, extracting anyway", pageURL)
			}
			return nil
		}),
		chromedp.Evaluate(collectHTMLScript, &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	if html == "" {
		return "", fmt.Errorf("render %s: empty document", pageURL)
	}
	return html, nil
}

// waitStableDOM polls body.innerText length until it stops growing (several
// consecutive checks with a small delta) and exceeds a minimum, or the
// stabilization window runs out.
func waitStableDOM(ctx context.Context) bool {
	deadline := time.Now().Add(stableTimeout)
	lastLen := -1
	stable := 0

	for time.Now().Before(deadline) {
		var textLen int
		if err := chromedp.Evaluate(
			`(document.body && document.body.innerText) ? document.body.innerText.length : 0`,
			&textLen,
		).Do(ctx); err != nil {
			textLen = 0
		}

		if lastLen >= 0 && abs(textLen-lastLen) < stableMaxDelta && textLen >= stableMinTextLen {
			stable++
			if stable >= stableSettleChecks {
				return true
			}
		} else {
			stable = 0
		}
		lastLen = textLen

		select {
		case <-ctx.Done():
			return false
		case <-time.After(stablePollInterval):
		}
	}
	return false
}

// collectHTMLScript grabs the document, appending accessible iframe
// documents when the top-level text is still short. Cross-origin frames
// throw and are skipped.
const collectHTMLScript = `(() => {
	let html = document.documentElement ? document.documentElement.outerHTML : "";
	const textLen = (document.body && document.body.innerText) ? document.body.innerText.length : 0;
	if (textLen < 700) {
		const parts = [];
		const frames = document.querySelectorAll("iframe");
		for (let i = 0; i < frames.length && i < 12; i++) {
			try {
				const doc = frames[i].contentDocument;
				if (doc && doc.documentElement) {
					parts.push(doc.documentElement.outerHTML);
				}
			} catch (e) {}
		}
		if (parts.length > 0) {
			html += "\n<!-- IFRAME_JOIN_BOUNDARY -->\n" + parts.join("\n<!-- IFRAME_JOIN_BOUNDARY -->\n");
		}
	}
	return html;
})()`

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
