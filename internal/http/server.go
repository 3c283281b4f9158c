// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"orcamento/internal/core"
	"orcamento/internal/ledger"
	"orcamento/internal/log"
	"orcamento/internal/middleware/ratelimit"
	"orcamento/internal/middleware/trace"
	"orcamento/internal/services"
)

// LedgerAPI is the service the handlers drive. *services.LedgerService
// satisfies it.
type LedgerAPI interface {
	Load(ctx context.Context) (ledger.Result, error)
	Summary(ctx context.Context, f ledger.Filter) (ledger.Summary, error)
	AddEntries(ctx context.Context, req ledger.EntryRequest) ([]string, error)
	PlanDeletion(ctx context.Context, ids []string) (services.DeletionPreview, error)
	DeleteEntries(ctx context.Context, ids []string, expectedVersion string) (services.DeleteResult, error)
	DeleteGroup(ctx context.Context, groupID, expectedVersion string) (services.DeleteResult, error)
	Registry(ctx context.Context) ([]core.RegistryEntry, error)
	AddRegistry(ctx context.Context, e core.RegistryEntry) error
}

var _ LedgerAPI = (*services.LedgerService)(nil)

// Options tune the server. The zero value serves without a readiness
// check and without rate limiting.
type Options struct {
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
	// RateLimitPerMinute caps writes per client; zero disables the limit.
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	api     LedgerAPI
	ready   func(ctx context.Context) error
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	stopLimiter  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, api LedgerAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		api:    api,
		ready:  opts.Ready,
		logger: logger,
		tracer: trace.NewMiddleware(logger, clientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/ledger", s.handleLedger)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntries)
	mux.HandleFunc("POST /api/entries/deletion-plan", s.handleDeletionPlan)
	mux.HandleFunc("POST /api/entries/delete", s.handleDeleteEntries)
	mux.HandleFunc("DELETE /api/groups/{id}", s.handleDeleteGroup)
	mux.HandleFunc("GET /api/registry", s.handleListRegistry)
	mux.HandleFunc("POST /api/registry", s.handleAddRegistry)

	var handler http.Handler = mux
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		})
		ctx, cancel := context.WithCancel(context.Background())
		s.stopLimiter = cancel
		go s.limiter.Run(ctx)
		handler = s.limiter.Middleware(clientIP, s.onRateLimit, http.MethodPost, http.MethodDelete)(handler)
	}
	handler = withJSONHeaders(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopLimiter != nil {
			s.stopLimiter()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request and rate limit counters.
func (s *Server) Metrics() map[string]any {
	m := map[string]any{"requests": s.tracer.GetMetrics()}
	if s.limiter != nil {
		m["rate_limit"] = s.limiter.GetMetrics()
	}
	return m
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first proxy-supplied address over the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
