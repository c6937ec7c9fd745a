// Package robots gates navigation on the target host's robots.txt rules.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

const defaultTTL = 30 * time.Minute

// Gate caches per-host robots.txt verdicts for the lifetime of a run. Fetch
// or parse failures default to allow so a broken robots endpoint never stalls
// a crawl; explicit rules are honored.
type Gate struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.Mutex
	hosts map[string]*hostEntry
}

type hostEntry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
}

// Options configures a Gate.
type Options struct {
	// Client defaults to a 10s-timeout client.
	Client *http.Client
	// UserAgent is the product token matched against robots.txt groups.
	UserAgent string
	// TTL bounds how long a fetched policy is reused. Zero means 30 minutes.
	TTL time.Duration
}

// New creates a Gate.
func New(opts Options) *Gate {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "expocrawl"
	}
	return &Gate{
		client:    client,
		userAgent: ua,
		ttl:       ttl,
		hosts:     make(map[string]*hostEntry),
	}
}

// Allowed reports whether the target URL may be fetched. The first call for a
// host fetches and parses its robots.txt; later calls reuse the cached policy
// until the TTL expires.
func (g *Gate) Allowed(ctx context.Context, target string) (bool, error) {
	u, err := url.Parse(target)
	if err != nil {
		return false, fmt.Errorf("failed to parse URL: %w", err)
	}

	g.mu.Lock()
	entry, ok := g.hosts[u.Host]
	if !ok || time.Since(entry.fetchedAt) > g.ttl {
		entry = &hostEntry{
			group:     g.fetch(ctx, u.Scheme, u.Host),
			fetchedAt: time.Now(),
		}
		g.hosts[u.Host] = entry
	}
	g.mu.Unlock()

	if entry.group == nil {
		return true, nil
	}
	return entry.group.Test(u.Path), nil
}

// fetch retrieves and parses robots.txt for one host. A nil return means no
// usable policy, which Allowed treats as allow-all.
func (g *Gate) fetch(ctx context.Context, scheme, host string) *robotstxt.Group {
	robotsURL := scheme + "://" + host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		log.Debug().Str("host", host).Err(err).Msg("robots.txt fetch failed, defaulting to allow")
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Debug().Str("host", host).Err(err).Msg("robots.txt parse failed, defaulting to allow")
		return nil
	}

	log.Debug().Str("host", host).Int("status", resp.StatusCode).Msg("robots.txt policy cached")
	return data.FindGroup(g.userAgent)
}
