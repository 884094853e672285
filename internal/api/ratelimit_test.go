package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitalsync/healthd/internal/log"
)

func TestRateLimiterExhaustsBurst(t *testing.T) {
	rl := newRateLimiter(1.0, 3)

	for i := range 3 {
		assert.True(t, rl.allow("1.2.3.4"), "request %d within burst", i)
	}
	assert.False(t, rl.allow("1.2.3.4"), "burst exhausted")

	// Other IPs are unaffected.
	assert.True(t, rl.allow("5.6.7.8"))
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	rl := newRateLimiter(1.0, 1)
	handler := rateLimitMiddleware(rl, false, log.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:5678"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{"direct", "10.0.0.1:1234", "", "", false, "10.0.0.1"},
		{"ignores headers without trust", "10.0.0.1:1234", "9.9.9.9", "", false, "10.0.0.1"},
		{"x-real-ip wins with trust", "10.0.0.1:1234", "9.9.9.9", "8.8.8.8", true, "9.9.9.9"},
		{"x-forwarded-for first ip", "10.0.0.1:1234", "", "8.8.8.8, 7.7.7.7", true, "8.8.8.8"},
		{"invalid header falls back", "10.0.0.1:1234", "not-an-ip", "also-bad", true, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trustProxy))
		})
	}
}
