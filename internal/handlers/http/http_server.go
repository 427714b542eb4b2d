package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/service"
	"irecStatApp/internal/domain/useCases"
)

const requestTimeout = 10 * time.Second

// Server represents an HTTP server with all routes configured
type Server struct {
	analytics   useCases.AnalyticsService
	broadcaster useCases.Broadcaster
	metrics     http.Handler
	log         *slog.Logger
	router      chi.Router
	server      *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a new HTTP server with configured routes
func NewServer(addr string, analytics useCases.AnalyticsService, broadcaster useCases.Broadcaster, opts ...Option) *Server {
	s := &Server{
		analytics:   analytics,
		broadcaster: broadcaster,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		router:      chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	if s.broadcaster != nil {
		r.Get("/ws", s.broadcaster.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/projects", s.handleProjects)
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/certificates", s.handleCertificates)
			r.Get("/payment-methods", s.handlePaymentMethods)
			r.Get("/tokenization", s.handleTokenization)
			r.Get("/realtime", s.handleRealTime)
		})
		r.Get("/supply", s.handleSupply)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache", s.handleClearCache)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.analytics.Projects(r.Context())
	s.respond(w, r, projects, err)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.ProjectAnalytics(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, res, err)
}

func (s *Server) handleCertificates(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.Certificates(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, res, err)
}

func (s *Server) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.PaymentMethods(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, res, err)
}

func (s *Server) handleTokenization(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.Tokenization(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, res, err)
}

func (s *Server) handleRealTime(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.RealTimeStats(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, res, err)
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	res, err := s.analytics.Supply(r.Context())
	s.respond(w, r, res, err)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.CacheStats(r.Context())
	s.respond(w, r, stats, err)
}

// handleClearCache clears the kinds named by repeated or comma-separated
// "kind" query parameters, or every kind when none is given.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var kinds []model.DatasetKind
	for _, v := range r.URL.Query()["kind"] {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, model.DatasetKind(k))
			}
		}
	}
	if err := s.analytics.ClearCache(r.Context(), kinds...); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnknownDataset):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("failed to encode response", slog.Any("error", err))
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
