// Package server exposes the current run to the presentation layer over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/klanavo/klanavo/internal/run"
	"github.com/klanavo/klanavo/pkg/geocode"
)

// Runner is the run control surface the API needs.
type Runner interface {
	Start(ctx context.Context, p run.Params) (*run.Session, error)
	Cancel()
	Snapshot() run.Snapshot
}

// LimitReporter exposes the primary geocoder's quota.
type LimitReporter interface {
	RateLimit() (geocode.RateLimit, bool)
}

// Server routes API requests to a Runner.
type Server struct {
	router  *chi.Mux
	runner  Runner
	limits  LimitReporter
	baseCtx context.Context
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Defaults to "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithLimits enables GET /api/limits.
func WithLimits(l LimitReporter) Option {
	return func(s *Server) { s.limits = l }
}

// New creates a Server. Runs started through the API live on baseCtx, not on
// the request that started them.
func New(baseCtx context.Context, runner Runner, opts ...Option) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		runner:  runner,
		baseCtx: baseCtx,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleStartRun)
		r.Get("/runs/current", s.handleCurrentRun)
		r.Delete("/runs/current", s.handleCancelRun)
		r.Get("/limits", s.handleLimits)
	})
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var p run.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.runner.Start(s.baseCtx, p)
	if err != nil {
		var ve *run.ValidationError
		if errors.As(err, &ve) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Message, "field": ve.Field})
			return
		}
		zap.L().Error("server: start run", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not start run")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"id":    sess.ID.String(),
		"epoch": sess.Epoch,
	})
}

func (s *Server) handleCurrentRun(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.runner.Snapshot())
}

func (s *Server) handleCancelRun(w http.ResponseWriter, _ *http.Request) {
	s.runner.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

type limitsResponse struct {
	Available bool `json:"available"`
	*geocode.RateLimit
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	if s.limits == nil {
		respondJSON(w, http.StatusOK, limitsResponse{})
		return
	}
	rl, ok := s.limits.RateLimit()
	if !ok {
		respondJSON(w, http.StatusOK, limitsResponse{})
		return
	}
	respondJSON(w, http.StatusOK, limitsResponse{Available: true, RateLimit: &rl})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
