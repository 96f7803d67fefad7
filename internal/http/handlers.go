package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/log"
)

const readyCheckTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady probes every dependency concurrently. One failing check makes
// the service unready; the others still report.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]string, len(s.deps.Checks)+1)
		failed bool
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, p := range s.deps.Checks {
		g.Go(func() error {
			result := "ok"
			if err := p.Ping(gctx); err != nil {
				result = "failed: " + err.Error()
				log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			}
			mu.Lock()
			defer mu.Unlock()
			checks[name] = result
			if result != "ok" {
				failed = true
			}
			return nil
		})
	}
	_ = g.Wait()

	checks["rate_limiter"] = fmt.Sprintf("ok (%d active clients)", s.rateLimiter.ActiveClients())

	status, httpStatus := "ready", http.StatusOK
	if failed {
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application metrics in Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP ledger_mutations_total Successful ledger mutations by kind\n")
	fmt.Fprintf(w, "# TYPE ledger_mutations_total counter\n")
	mutations := map[string]int64{
		"created": atomic.LoadInt64(&s.appMetrics.created),
		"updated": atomic.LoadInt64(&s.appMetrics.updated),
		"deleted": atomic.LoadInt64(&s.appMetrics.deleted),
	}
	kinds := make([]string, 0, len(mutations))
	for k := range mutations {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "ledger_mutations_total{kind=%q} %d\n", k, mutations[k])
	}
	fmt.Fprintln(w)

	writeMetric(w, "ledger_exports_total", "counter", "CSV exports served", atomic.LoadInt64(&s.appMetrics.exports))
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
