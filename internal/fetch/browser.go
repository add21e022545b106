// Package fetch - browser.go renders pages in headless Chrome and reads the DOM.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/jonathan/profile-importer/internal/logging"
	"go.uber.org/zap"
)

// MinContentLength is the minimum text length for an HTTP fetch to count as
// successful. Shorter pages are assumed to be client-rendered.
const MinContentLength = 200

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely a JavaScript-rendered SPA.
func ShouldUseBrowser(text string) bool {
	return len([]rune(text)) < MinContentLength
}

// snapshotScript collects everything the avatar locator and extractor need in
// one round trip. Sizes are natural (intrinsic) sizes; top is relative to the
// viewport, as getBoundingClientRect reports it.
const snapshotScript = `(() => {
  const clean = (s) => (s || '').replace(/\s+/g, ' ').trim().slice(0, 500);
  const images = Array.from(document.querySelectorAll('img')).map((img) => {
    const rect = img.getBoundingClientRect();
    return {
      src: img.src || '',
      raw_src: img.getAttribute('src') || '',
      data_src: img.getAttribute('data-src') || '',
      data_original: img.getAttribute('data-original') || '',
      alt: img.getAttribute('alt') || '',
      class: typeof img.className === 'string' ? img.className : '',
      id: img.id || '',
      complete: !!img.complete,
      natural_width: img.naturalWidth || 0,
      natural_height: img.naturalHeight || 0,
      top: rect.top,
      parent_text: clean(img.parentElement ? img.parentElement.textContent : ''),
    };
  });
  return {
    url: location.href,
    text: document.body ? document.body.innerText : '',
    viewport_height: window.innerHeight,
    images: images,
  };
})()`

// RenderSnapshot loads url in headless Chrome and snapshots the rendered page.
// Requires Chrome/Chromium to be installed on the system.
func RenderSnapshot(ctx context.Context, url string, opts *Options) (*Snapshot, error) {
	opts = opts.withDefaults()
	logger := logging.FromContext(ctx, nil).With(zap.String("url", url))
	logger.Debug("starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserAgent(opts.UserAgent),
			chromedp.WindowSize(1366, 900),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, opts.BrowserTimeout)
	defer cancel()

	var (
		snap Snapshot
		html string
	)

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Profile pages lazy-load the header card and avatar.
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(snapshotScript, &snap),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	snap.HTML = html
	snap.Text = cleanWhitespace(snap.Text)
	snap.Rendered = true
	if snap.URL == "" {
		snap.URL = url
	}

	logger.Debug("rendered page",
		zap.Int("html_bytes", len(html)),
		zap.Int("text_chars", len([]rune(snap.Text))),
		zap.Int("images", len(snap.Images)),
	)
	return &snap, nil
}

// Take captures url: HTTP fetch and static parse first, falling back to the
// headless browser when opts.UseBrowser is set and the page either belongs to
// a client-rendered platform or yields too little text.
func Take(ctx context.Context, url string, opts *Options) (*Snapshot, error) {
	opts = opts.withDefaults()
	logger := logging.FromContext(ctx, nil).With(zap.String("url", url))

	platform := DetectPlatform(url)
	noise := PlatformNoiseSelectors(platform)

	triedBrowser := false
	if opts.UseBrowser && NeedsBrowser(platform) {
		triedBrowser = true
		snap, err := RenderSnapshot(ctx, url, opts)
		if err == nil {
			return snap, nil
		}
		logger.Warn("browser rendering failed, trying plain HTTP", zap.Error(err))
	}

	result, err := URL(ctx, url, opts)
	if err != nil {
		return nil, err
	}

	snap, err := SnapshotFromHTML(result.HTML, result.URL, noise...)
	if err != nil {
		return nil, &Error{URL: url, Message: "content extraction failed", Cause: err}
	}
	logger.Debug("fetched page",
		zap.String("platform", string(platform)),
		zap.Int("html_bytes", len(result.HTML)),
		zap.Int("text_chars", len([]rune(snap.Text))),
	)

	if opts.UseBrowser && !triedBrowser && ShouldUseBrowser(snap.Text) {
		logger.Info("page text too short, falling back to browser rendering",
			zap.Int("text_chars", len([]rune(snap.Text))),
			zap.Int("min_chars", MinContentLength),
		)
		rendered, err := RenderSnapshot(ctx, url, opts)
		if err != nil {
			logger.Warn("browser rendering failed, using HTTP content", zap.Error(err))
			return snap, nil
		}
		return rendered, nil
	}

	return snap, nil
}

// Describe summarises a snapshot for logs and CLI output.
func (s *Snapshot) Describe() string {
	mode := "static"
	if s.Rendered {
		mode = "rendered"
	}
	return fmt.Sprintf("%s snapshot of %s: %d chars, %d images", mode, s.URL, len([]rune(s.Text)), len(s.Images))
}
