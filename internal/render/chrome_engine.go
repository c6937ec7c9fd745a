// internal/render/chrome_engine.go
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/crawlerr"
)

// ChromeEngine drives one headless Chrome process per run. Open creates a
// fresh tab context per session, so concurrent tasks are isolated; the permit
// system in the crawler bounds how many tabs exist at once.
type ChromeEngine struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	mu          sync.Mutex
	closed      bool
}

// ChromeOptions configures the browser process.
type ChromeOptions struct {
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	ExtraArgs  []chromedp.ExecAllocatorOption
}

// NewChromeEngine starts the exec allocator for the run. The browser process
// itself launches lazily with the first tab.
func NewChromeEngine(opts ChromeOptions) (*ChromeEngine, error) {
	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = FindChrome()
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("force-color-profile", "srgb"),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-features", "site-per-process,TranslateUI,BlinkGenPropertyTrees"),
		chromedp.Flag("enable-features", "NetworkService,NetworkServiceInProcess"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("disk-cache-size", "0"),
		chromedp.Flag("media-cache-size", "0"),
	}

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	allocOpts = append(allocOpts, opts.ExtraArgs...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	log.Debug().
		Str("chrome_path", chromePath).
		Bool("headless", opts.Headless).
		Msg("Chrome allocator created")

	return &ChromeEngine{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Name returns the name of this engine
func (e *ChromeEngine) Name() string {
	return "ChromeEngine"
}

// Shutdown cancels the allocator, terminating the browser process and every
// remaining tab.
func (e *ChromeEngine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.allocCancel()
	log.Debug().Msg("Chrome engine shut down")
}

// Open creates a fresh tab, navigates, and applies the wait condition. The
// caller must Close the session on every exit path to release the tab.
func (e *ChromeEngine) Open(ctx context.Context, url string, opts OpenOptions) (Session, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, crawlerr.Fatal("chrome engine is shut down", nil)
	}
	e.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	runCtx, runCancel := context.WithTimeout(tabCtx, timeout)
	defer runCancel()

	// Track the main document status through CDP network events.
	var statusCode int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Response.URL == url {
				statusCode = resp.Response.Status
			}
		}
	})

	tasks := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(url),
	}
	if opts.WaitSelector != "" {
		tasks = append(tasks, waitAction(opts.WaitSelector, opts.WaitState))
	}

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		tabCancel()
		return nil, classifyChromeError(url, err)
	}

	if statusCode >= 400 {
		tabCancel()
		err := fmt.Errorf("unexpected status %d for %s", statusCode, url)
		if retryableStatus(int(statusCode)) {
			return nil, crawlerr.Transient("navigation failed", err)
		}
		return nil, crawlerr.HTTPError("navigation failed", err)
	}

	log.Debug().
		Str("url", url).
		Int64("status", statusCode).
		Str("engine", e.Name()).
		Msg("Navigation completed")

	return &chromeSession{url: url, tabCtx: tabCtx, cancel: tabCancel}, nil
}

// chromeSession owns one tab for its lifetime.
type chromeSession struct {
	url    string
	tabCtx context.Context
	cancel context.CancelFunc
}

// Page snapshots the rendered document into a goquery tree.
func (s *chromeSession) Page(ctx context.Context) (*Page, error) {
	var html string
	if err := chromedp.Run(s.tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, classifyChromeError(s.url, err)
	}
	return NewPage(s.url, strings.NewReader(html))
}

// WaitFor blocks until the selector reaches the given state or the timeout
// expires. Timeout expiry classifies as retryable.
func (s *chromeSession) WaitFor(ctx context.Context, sel string, state WaitState, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, waitAction(sel, state)); err != nil {
		return classifyChromeError(s.url, err)
	}
	return nil
}

func (s *chromeSession) URL() string {
	return s.url
}

// Close releases the tab.
func (s *chromeSession) Close() {
	s.cancel()
}

func waitAction(sel string, state WaitState) chromedp.Action {
	if state == WaitVisible {
		return chromedp.WaitVisible(sel, chromedp.ByQuery)
	}
	return chromedp.WaitReady(sel, chromedp.ByQuery)
}

func classifyChromeError(url string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return crawlerr.Timeout(fmt.Sprintf("navigation to %s timed out", url), err)
	case errors.Is(err, context.Canceled):
		return err
	case strings.Contains(err.Error(), "chrome failed to start"),
		strings.Contains(err.Error(), "exec:"),
		strings.Contains(err.Error(), "browser closed"):
		return crawlerr.Fatal("chrome browser unavailable", err)
	}
	return crawlerr.Transient(fmt.Sprintf("navigation to %s failed", url), err)
}
