package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oxylab/docseg/internal/dictionary"
	"github.com/oxylab/docseg/internal/store"
)

func (s *Server) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	org := store.Organization{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateOrganization(r.Context(), org); err != nil {
		jsonError(w, "failed to create organization: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (s *Server) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.store.ListOrganizations(r.Context())
	if err != nil {
		jsonError(w, "failed to list organizations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if orgs == nil {
		orgs = []store.Organization{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var req struct {
		Name       string `json:"name"`
		SourceLang string `json:"source_lang"`
		TargetLang string `json:"target_lang"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	proj := store.Project{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		Name:       req.Name,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateProject(r.Context(), proj); err != nil {
		jsonError(w, "failed to create project: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	projects, err := s.store.ListProjects(r.Context(), orgID)
	if err != nil {
		jsonError(w, "failed to list projects: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// handleImportDictionary ingests a TMX or term-base XML file and replaces the
// project's dictionary with its entries.
func (s *Server) handleImportDictionary(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "project not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load project: "+err.Error(), http.StatusInternalServerError)
		return
	}

	body := io.LimitReader(r.Body, s.cfg.MaxUploadBytes)
	result, err := dictionary.Import(body)
	if err != nil {
		jsonError(w, "import failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	entries := make([][3]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, [3]string{e.Source, e.Target, e.Definition})
	}
	if err := s.store.ReplaceDictionary(r.Context(), projectID, entries); err != nil {
		jsonError(w, "failed to store dictionary: "+err.Error(), http.StatusInternalServerError)
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": len(entries),
		"warnings": warnings,
	})
}

func (s *Server) handleListDictionary(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	entries, err := s.store.ListDictionary(r.Context(), projectID)
	if err != nil {
		jsonError(w, "failed to list dictionary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.DictionaryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
