// Package api exposes the healthd HTTP surface: analysis runs streamed over
// SSE, memory reads and context updates, and profile lookups.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	MemoryStore MemoryStore     // Required
	Registry    ProfileRegistry // Required
	Runner      AnalysisRunner  // Required
	Pool        *pgxpool.Pool   // Optional: nil disables pool stats in /ready
	CORSOrigins []string        // Allowed origins for CORS
	IsDev       bool            // Disables HSTS (HTTP-only local development)
	TrustProxy  bool            // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst   int             // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.MemoryStore == nil {
		return nil, errors.New("memory store is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("profile registry is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("analysis runner is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mh := &memoryHandler{store: cfg.MemoryStore, logger: logger}
	ph := &profileHandler{registry: cfg.Registry, store: cfg.MemoryStore, logger: logger}
	ah := &analyzeHandler{runner: cfg.Runner, registry: cfg.Registry, logger: logger}
	sh := &statusHandler{runner: cfg.Runner, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", sh.getStatus)
	mux.HandleFunc("POST /api/v1/analyze", ah.analyze)
	mux.HandleFunc("GET /api/v1/memory/{profileID}", mh.getMemory)
	mux.HandleFunc("PATCH /api/v1/memory/{profileID}/context", mh.updateContext)
	mux.HandleFunc("GET /api/v1/profiles/{profileID}", ph.getProfile)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
