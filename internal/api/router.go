package api

import (
	"net/http"
	"time"

	"admissions-engine/internal/common/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the API, health endpoints and /metrics.
func NewRouter(h *Handler, obs *observability.Observability) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if obs != nil {
		r.Use(requestMetrics(obs))
	}

	h.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func requestMetrics(obs *observability.Observability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &observability.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			obs.RecordRequest(r.Context(), r.Method, route, rec.Status, time.Since(start))
		})
	}
}
