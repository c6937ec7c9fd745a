// Package proxy rotates outbound proxies for the render engines and the
// asset fetcher. Chrome pins the first healthy proxy for the whole run (one
// browser process, one egress); the HTTP paths rotate per request.
package proxy

import (
	"sync"
	"time"
)

// failureCooldown is how long a marked-failed proxy is skipped before it is
// eligible again.
const failureCooldown = 5 * time.Minute

// Pool manages a list of proxies with round-robin rotation and failure
// cooldown.
type Pool struct {
	proxies []string
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
}

// NewPool creates a Pool. An empty list yields a pool whose Next always
// returns "", meaning direct connections.
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
	}
}

// Next returns the next healthy proxy. When every proxy is cooling down, the
// current one is returned anyway rather than stalling the caller.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		candidate := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[candidate]; ok {
			if time.Since(failTime) < failureCooldown {
				if p.index == start {
					return candidate
				}
				continue
			}
			delete(p.failed, candidate)
		}

		return candidate
	}
}

// MarkFailed puts a proxy on cooldown.
func (p *Pool) MarkFailed(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears a proxy's cooldown.
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// Size returns the number of configured proxies.
func (p *Pool) Size() int {
	return len(p.proxies)
}
