// ABOUTME: Per-client sliding-window rate limiter for the query endpoint
// ABOUTME: Keys clients by bearer token or forwarded address and reports a retry delay
package gateway

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows at most limit requests per client within window
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
// A limit <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string][]time.Time),
		limit:   perMinute,
		window:  time.Minute,
		now:     time.Now,
	}
}

// Allow records a request for key. When the client is over its limit it
// returns false and how long until the oldest request leaves the window.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	if rl == nil || rl.limit <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	stamps := rl.clients[key]
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.clients[key] = kept
		return false, kept[0].Add(rl.window).Sub(now)
	}
	rl.clients[key] = append(kept, now)
	return true, 0
}

// Prune drops clients with no requests inside the window
func (rl *RateLimiter) Prune() {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, stamps := range rl.clients {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// ClientKey identifies the caller: bearer token first, then the first
// X-Forwarded-For hop, then the remote host without its port
func ClientKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return "token:" + strings.TrimPrefix(auth, "Bearer ")
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return "ip:" + strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
