// Package server exposes the admin JSON API consumed by the directory UI.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/jobs"
	"github.com/azar84/saas-marketing-360-sub004/internal/monitoring"
	"github.com/azar84/saas-marketing-360-sub004/internal/search"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

// Server bundles the handlers' dependencies.
type Server struct {
	store     store.Store
	search    *search.Service
	submitter *jobs.Submitter
	registry  *jobs.Registry
	collector *monitoring.Collector
}

// New creates a Server.
func New(st store.Store, svc *search.Service, submitter *jobs.Submitter, registry *jobs.Registry, collector *monitoring.Collector) *Server {
	return &Server{
		store:     st,
		search:    svc,
		submitter: submitter,
		registry:  registry,
		collector: collector,
	}
}

// Router builds the chi handler tree. The admin UI runs on another
// origin, so CORS is part of the surface, not an afterthought.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleSessionDetail)
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs/keywords", s.handleSubmitKeywords)
		r.Post("/jobs/enrich", s.handleSubmitEnrichment)
		r.Delete("/jobs/{id}", s.handleDeleteJob)
		r.Get("/metrics", s.handleMetrics)
	})
	return r
}

// envelope is the uniform error/success wrapper for payload-less replies.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	e := envelope{Success: false, Error: msg}
	if err != nil {
		e.Details = err.Error()
	}
	writeJSON(w, status, e)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
