package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// APIPrefix mounts a second copy of every route.
const APIPrefix = "/api"

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the routes.
type Deps struct {
	Ledger     *services.LedgerService
	Queries    *services.QueryService
	Aggregates *services.AggregationService
	Export     *services.ExportService

	// Checks are probed by /readyz, keyed by display name.
	Checks map[string]Pinger
}

type Options struct {
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	Logger             *log.Logger
	// Now is the server clock used for the future-date check.
	Now func() time.Time
}

type Server struct {
	http.Server
	deps           Deps
	logger         *log.Logger
	requestTimeout time.Duration
	now            func() time.Time

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime  time.Time
	created int64
	updated int64
	deleted int64
	exports int64
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		deps:           deps,
		logger:         opts.Logger.WithComponent(log.ComponentHTTP),
		requestTimeout: opts.RequestTimeout,
		now:            opts.Now,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		appMetrics: &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(opts.Logger, security.ClientIP)

	mux := http.NewServeMux()
	for _, prefix := range []string{"", APIPrefix} {
		s.routes(mux, prefix)
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "route not found").Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux, prefix string) {
	// Every known method gets an explicit pattern; a method-less fallback
	// would overlap "GET /transactions/{id}" on the export path.
	known := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	handle := func(path string, methods map[string]http.HandlerFunc) {
		var allowed []string
		for _, method := range known {
			if _, ok := methods[method]; ok {
				allowed = append(allowed, method)
			}
		}
		notAllowed := func(w http.ResponseWriter, r *http.Request) {
			MethodNotAllowedError(strings.Join(allowed, ", ")).Write(w)
		}
		for _, method := range known {
			h, ok := methods[method]
			if !ok {
				h = notAllowed
			}
			mux.HandleFunc(method+" "+prefix+path, h)
		}
	}

	handle("/transactions", map[string]http.HandlerFunc{
		http.MethodGet:  s.handleListTransactions,
		http.MethodPost: s.handleCreateTransaction,
	})
	handle("/transactions/export-csv", map[string]http.HandlerFunc{
		http.MethodGet: s.handleExportCSV,
	})
	handle("/transactions/{id}", map[string]http.HandlerFunc{
		http.MethodGet:    s.handleGetTransaction,
		http.MethodPut:    s.handleUpdateTransaction,
		http.MethodDelete: s.handleDeleteTransaction,
	})
	handle("/summary/{year}/{month}", map[string]http.HandlerFunc{
		http.MethodGet: s.handleMonthlySummary,
	})
	handle("/summary/{year}/{month}/categories", map[string]http.HandlerFunc{
		http.MethodGet: s.handleCategoryBreakdown,
	})
	handle("/monthly-trends", map[string]http.HandlerFunc{
		http.MethodGet: s.handleMonthlyTrends,
	})
}

// middleware wraps the mux: logger, tracing, security headers, rate limiting
// of mutations, then the per-request timeout.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, security.ClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodDelete)

	h := s.withTimeout(next)
	h = limited(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (m *appMetrics) record(counter *int64) {
	atomic.AddInt64(counter, 1)
}
