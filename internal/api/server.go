// Package api is the HTTP surface of the segmentation service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oxylab/docseg/internal/config"
	"github.com/oxylab/docseg/internal/overlay"
	"github.com/oxylab/docseg/internal/pipeline"
	"github.com/oxylab/docseg/internal/store"
)

// Server is the HTTP API server for docseg.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	overlay      *overlay.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, st *store.Store, ov *overlay.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		overlay:      ov,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/orgs", s.handleCreateOrg)
		r.Get("/api/orgs", s.handleListOrgs)
		r.Post("/api/orgs/{orgID}/projects", s.handleCreateProject)
		r.Get("/api/orgs/{orgID}/projects", s.handleListProjects)

		r.Post("/api/projects/{projectID}/documents", s.handleUpload)
		r.Get("/api/projects/{projectID}/documents", s.handleListDocuments)
		r.Post("/api/projects/{projectID}/dictionary", s.handleImportDictionary)
		r.Get("/api/projects/{projectID}/dictionary", s.handleListDictionary)

		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
		r.Get("/api/documents/{docID}/segments", s.handleListSegments)
		r.Put("/api/documents/{docID}/translations", s.handlePutTranslations)
		r.Get("/api/documents/{docID}/reconstruct", s.handleReconstruct)
		r.Post("/api/documents/{docID}/overlay", s.handleRenderOverlay)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
