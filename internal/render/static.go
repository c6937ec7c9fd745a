// internal/render/static.go
package render

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/crawlerr"
	"github.com/medline/expocrawl/internal/proxy"
	"github.com/medline/expocrawl/internal/ratelimit"
	"github.com/medline/expocrawl/internal/utils/headers"
)

// StaticEngine fetches pages over plain HTTP and parses them with goquery.
// It serves server-rendered targets and the end-to-end tests; wait conditions
// degrade to presence checks against the snapshot. Proxies rotate per
// navigation: a failed fetch puts its proxy on cooldown, a response marks it
// healthy again.
type StaticEngine struct {
	client    *http.Client
	limiter   ratelimit.RateLimiter
	proxies   *proxy.Pool
	userAgent string
	extra     map[string]string
}

// StaticOptions configures the static engine.
type StaticOptions struct {
	Timeout   time.Duration
	UserAgent string
	// Headers is applied on top of the default browser-like set.
	Headers map[string]string
	// Proxies rotates per navigation; nil or empty means direct connections.
	Proxies *proxy.Pool
	Limiter ratelimit.RateLimiter
}

// proxyCtxKey carries the proxy chosen for one navigation through the request
// context so the shared transport can route it.
type proxyCtxKey struct{}

// NewStaticEngine creates a StaticEngine with a pooled transport.
func NewStaticEngine(opts StaticOptions) *StaticEngine {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		Proxy: func(req *http.Request) (*url.URL, error) {
			if p, ok := req.Context().Value(proxyCtxKey{}).(string); ok && p != "" {
				return url.Parse(p)
			}
			return nil, nil
		},
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &StaticEngine{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter:   opts.Limiter,
		proxies:   opts.Proxies,
		userAgent: opts.UserAgent,
		extra:     opts.Headers,
	}
}

// Name returns the name of this engine
func (e *StaticEngine) Name() string {
	return "StaticEngine"
}

// Shutdown releases idle connections.
func (e *StaticEngine) Shutdown() {
	e.client.CloseIdleConnections()
}

// Open fetches the URL and snapshots the response body. The returned session
// is the snapshot itself; Close is a no-op.
func (e *StaticEngine) Open(ctx context.Context, target string, opts OpenOptions) (Session, error) {
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, target); err != nil {
			return nil, err
		}
	}

	prox := ""
	if e.proxies != nil {
		prox = e.proxies.Next()
		if prox != "" {
			ctx = context.WithValue(ctx, proxyCtxKey{}, prox)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, crawlerr.Transient("failed to create request", err)
	}
	headers.Apply(req, e.userAgent)
	for k, v := range e.extra {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if prox != "" {
			e.proxies.MarkFailed(prox)
		}
		return nil, classifyFetchError(target, err)
	}
	defer resp.Body.Close()
	if prox != "" {
		// Any response means the proxy itself worked.
		e.proxies.MarkHealthy(prox)
	}

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("unexpected status %d for %s", resp.StatusCode, target)
		if retryableStatus(resp.StatusCode) {
			return nil, crawlerr.Transient("fetch failed", err)
		}
		return nil, crawlerr.HTTPError("fetch failed", err)
	}

	page, err := NewPage(target, resp.Body)
	if err != nil {
		return nil, crawlerr.Transient("failed to parse HTML", err)
	}

	sess := &staticSession{page: page}
	if opts.WaitSelector != "" {
		if err := sess.WaitFor(ctx, opts.WaitSelector, opts.WaitState, 0); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("engine", e.Name()).
		Msg("Fetch completed")

	return sess, nil
}

// staticSession wraps an already-parsed snapshot.
type staticSession struct {
	page *Page
}

func (s *staticSession) Page(ctx context.Context) (*Page, error) {
	return s.page, nil
}

// WaitFor degrades to a presence check: the snapshot is final, so an element
// either is attached or never will be. Visibility cannot be observed without
// a renderer and is reported as present.
func (s *staticSession) WaitFor(ctx context.Context, sel string, state WaitState, timeout time.Duration) error {
	if s.page.Root().Find(sel).Length() == 0 {
		return crawlerr.Timeout(fmt.Sprintf("selector %q not present in document", sel), nil)
	}
	return nil
}

func (s *staticSession) URL() string {
	return s.page.URL()
}

func (s *staticSession) Close() {}

func classifyFetchError(target string, err error) error {
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return crawlerr.Timeout(fmt.Sprintf("navigation to %s timed out", target), err)
	}
	if timeoutErr, ok := err.(interface{ Timeout() bool }); ok && timeoutErr.Timeout() {
		return crawlerr.Timeout(fmt.Sprintf("navigation to %s timed out", target), err)
	}
	return crawlerr.Transient(fmt.Sprintf("navigation to %s failed", target), err)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
