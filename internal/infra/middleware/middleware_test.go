package middleware

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-courtroom/internal/infra/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func do(h http.Handler, remote string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, "/cases/1", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(t.Context(), config.RateLimitConfig{RequestsPerMin: 60, Burst: 2}, nil)
	h := rl.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, do(h, "192.168.1.1:1000", nil))
	assert.Equal(t, http.StatusOK, do(h, "192.168.1.1:1001", nil))
	assert.Equal(t, http.StatusTooManyRequests, do(h, "192.168.1.1:1002", nil))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, do(h, "192.168.1.2:1000", nil))
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_CustomRejection(t *testing.T) {
	onLimit := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	rl := NewRateLimiter(t.Context(), config.RateLimitConfig{RequestsPerMin: 1, Burst: 1}, onLimit)
	h := rl.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, do(h, "10.1.1.1:1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, do(h, "10.1.1.1:1", nil))
}

func TestRateLimiter_ProxyHeadersOnlyFromTrustedPeers(t *testing.T) {
	rl := NewRateLimiter(t.Context(), config.RateLimitConfig{
		RequestsPerMin: 60,
		Burst:          1,
		TrustedProxies: []string{"10.0.0.0/8", "172.16.0.5"},
	}, nil)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted peer ignores xff", "203.0.113.9:443", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.9"},
		{"trusted cidr uses first xff hop", "10.2.3.4:443", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.2.3.4"}, "1.2.3.4"},
		{"trusted ip uses x-real-ip", "172.16.0.5:443", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "5.6.7.8"},
		{"trusted peer without headers", "10.9.9.9:443", nil, "10.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}

func TestRateLimiter_EvictsStaleClients(t *testing.T) {
	rl := NewRateLimiter(t.Context(), config.RateLimitConfig{RequestsPerMin: 60, Burst: 5}, nil)
	now := time.Now()
	rl.now = func() time.Time { return now }

	h := rl.Middleware(okHandler)
	do(h, "192.168.1.1:1", nil)
	now = now.Add(2 * time.Minute)
	do(h, "192.168.1.2:1", nil)
	require.Equal(t, 2, rl.Clients())

	now = now.Add(2 * time.Minute)
	rl.evictStale()
	assert.Equal(t, 1, rl.Clients())
}

func TestRateLimiter_CleanupStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rl := NewRateLimiter(ctx, config.RateLimitConfig{RequestsPerMin: 60, Burst: 1}, nil)
	cancel()
	// The limiter keeps serving after its cleanup loop exits.
	assert.Equal(t, http.StatusOK, do(rl.Middleware(okHandler), "192.168.1.1:1", nil))
}
