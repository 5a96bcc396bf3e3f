package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"virtual-courtroom/internal/infra/config"
)

const (
	cleanupInterval = time.Minute
	staleAfter      = 3 * time.Minute
)

// RateLimiter applies a token bucket per client IP. Proxy headers are only
// honoured when the direct peer is in the trusted proxy set.
type RateLimiter struct {
	perSecond rate.Limit
	burst     int
	trusted   []*net.IPNet
	onLimit   http.Handler

	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter from cfg and starts a cleanup goroutine
// that stops when ctx is cancelled. onLimit writes the rejection; nil means
// a plain 429.
func NewRateLimiter(ctx context.Context, cfg config.RateLimitConfig, onLimit http.Handler) *RateLimiter {
	if onLimit == nil {
		onLimit = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		})
	}
	rl := &RateLimiter{
		perSecond: rate.Limit(cfg.RequestsPerMin) / 60.0,
		burst:     cfg.Burst,
		trusted:   parseTrusted(cfg.TrustedProxies),
		onLimit:   onLimit,
		clients:   make(map[string]*client),
		now:       time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

// Middleware wraps next with the limiter.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.clientIP(r)) {
			rl.onLimit.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clients reports how many client buckets are currently tracked.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = rl.now()
	lim := c.limiter
	rl.mu.Unlock()
	return lim.Allow()
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.evictStale()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-staleAfter)
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// clientIP returns the direct peer address unless the peer is a trusted
// proxy, in which case the first X-Forwarded-For hop (or X-Real-IP) wins.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	direct := r.RemoteAddr
	if host, _, err := net.SplitHostPort(direct); err == nil {
		direct = host
	}
	if !rl.isTrusted(direct) {
		return direct
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return direct
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range rl.trusted {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// parseTrusted accepts bare IPs and CIDRs; invalid entries are dropped since
// config validation already reports them.
func parseTrusted(entries []string) []*net.IPNet {
	var out []*net.IPNet
	for _, e := range entries {
		if _, n, err := net.ParseCIDR(e); err == nil {
			out = append(out, n)
			continue
		}
		ip := net.ParseIP(e)
		if ip == nil {
			continue
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out
}
