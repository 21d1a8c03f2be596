// Package server exposes the metal price store over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/metals/market"
	"github.com/rustyeddy/metals/store"
)

const DefaultAddr = ":8080"

// Service is what the handlers need from pipeline.Service.
type Service interface {
	Query(ctx context.Context, specs []store.Spec) ([][]market.Record, error)
	QueryIsolated(ctx context.Context, specs []store.Spec) []store.Outcome
	QueryOne(ctx context.Context, spec store.Spec) ([]market.Record, error)
	Runs(ctx context.Context, limit int) ([]store.Run, error)
	Run(ctx context.Context, runID string) (store.Run, error)
	Ping(ctx context.Context) error
}

type handler struct {
	svc    Service
	logger *slog.Logger
}

// NewRouter builds the HTTP routes. gatherer backs /metrics.
func NewRouter(svc Service, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/prices", func(r chi.Router) {
		r.Get("/", h.getPrices)
		r.Post("/query", h.postQuery)
	})
	r.Get("/runs", h.getRuns)
	r.Get("/runs/{runID}", h.getRun)

	return r
}

// New returns a configured but not yet listening server.
func New(addr string, h http.Handler) *http.Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &http.Server{
		Addr:           addr,
		Handler:        h,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
