package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oxylab/docseg/internal/engine"
	"github.com/oxylab/docseg/internal/overlay"
	"github.com/oxylab/docseg/internal/pipeline"
	"github.com/oxylab/docseg/internal/store"
	"github.com/oxylab/docseg/internal/wordml"
)

// formatForFilename maps an upload's extension to a processing format.
func formatForFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return "docx"
	case ".pdf":
		return "pdf"
	case ".md", ".markdown":
		return "markdown"
	default:
		return ""
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "project not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load project: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Limit total request size; extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	format := formatForFilename(filename)
	if format == "" {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	now := time.Now()
	doc := store.Document{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Filename:  filename,
		Format:    format,
		Status:    "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateDocument(r.Context(), doc, data); err != nil {
		jsonError(w, "failed to create document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	job := pipeline.NewJob(doc.ID, projectID, filename, format, data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":      job.ID,
		"document_id": doc.ID,
		"status":      job.Status,
		"poll_url":    fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	docs, err := s.store.ListDocuments(r.Context(), projectID)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.store.DeleteDocument(r.Context(), docID); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	segments, err := s.store.ListSegments(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to list segments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if segments == nil {
		segments = []engine.Segment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"segments": segments})
}

func (s *Server) handlePutTranslations(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if _, ok := s.loadDocument(w, r); !ok {
		return
	}

	var req struct {
		Translations map[uint32]string `json:"translations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Translations) == 0 {
		jsonError(w, "translations is required", http.StatusBadRequest)
		return
	}

	if err := s.store.UpsertTranslations(r.Context(), docID, req.Translations); err != nil {
		jsonError(w, "failed to store translations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(req.Translations)})
}

// handleReconstruct rebuilds the original file with stored translations
// spliced in and streams it back as a download.
func (s *Server) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if doc.Format != "docx" {
		jsonError(w, fmt.Sprintf("reconstruction is not supported for %s documents", doc.Format), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	content, err := s.store.GetDocumentContent(ctx, doc.ID)
	if err != nil {
		jsonError(w, "failed to load document content: "+err.Error(), http.StatusInternalServerError)
		return
	}
	meta, err := s.store.LoadMetadata(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document has not been parsed yet", http.StatusConflict)
			return
		}
		jsonError(w, "failed to load metadata: "+err.Error(), http.StatusInternalServerError)
		return
	}
	translations, err := s.store.GetTranslations(ctx, doc.ID)
	if err != nil {
		jsonError(w, "failed to load translations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	arc, err := wordml.OpenArchive(content)
	if err != nil {
		jsonError(w, "failed to open document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	rebuilt, warnings, err := engine.Reconstruct(ctx, arc.Document, meta, translations)
	if err != nil {
		var integrity *engine.IntegrityError
		if errors.As(err, &integrity) {
			jsonError(w, "stored metadata does not match the document: "+integrity.Error(), http.StatusConflict)
			return
		}
		jsonError(w, "reconstruction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	out, err := arc.Save(rebuilt)
	if err != nil {
		jsonError(w, "failed to write document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	for _, warn := range warnings {
		s.log.Warn("segment skipped during reconstruction",
			"document_id", doc.ID, "segment", warn.SegmentIndex, "reason", warn.Reason)
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("X-Reconstruct-Warnings", strconv.Itoa(len(warnings)))
	w.Write(out)
}

// handleRenderOverlay asks the overlay renderer to draw stored translations
// over the original PDF.
func (s *Server) handleRenderOverlay(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if doc.Format != "pdf" {
		jsonError(w, fmt.Sprintf("overlay rendering is not supported for %s documents", doc.Format), http.StatusBadRequest)
		return
	}
	if !s.overlay.Configured() {
		jsonError(w, "no overlay service is configured", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	content, err := s.store.GetDocumentContent(ctx, doc.ID)
	if err != nil {
		jsonError(w, "failed to load document content: "+err.Error(), http.StatusInternalServerError)
		return
	}
	segments, err := s.store.ListSegments(ctx, doc.ID)
	if err != nil {
		jsonError(w, "failed to list segments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	translations, err := s.store.GetTranslations(ctx, doc.ID)
	if err != nil {
		jsonError(w, "failed to load translations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	positions, err := s.store.GetSegmentPositions(ctx, doc.ID)
	if err != nil {
		jsonError(w, "failed to load segment positions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	overlays := make([]overlay.SegmentOverlay, 0, len(segments))
	for _, seg := range segments {
		text, ok := translations[seg.Index]
		if !ok || text == "" {
			continue
		}
		overlays = append(overlays, overlay.SegmentOverlay{
			SegmentIndex: seg.Index,
			Text:         text,
			Positions:    positions[seg.Index],
		})
	}
	if len(overlays) == 0 {
		jsonError(w, "document has no translations", http.StatusConflict)
		return
	}

	rendered, err := s.overlay.Render(ctx, overlay.RenderRequest{
		Document: content,
		Overlays: overlays,
	})
	if err != nil {
		jsonError(w, "overlay rendering failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Write(rendered)
}

// loadDocument fetches the document from the URL parameter, writing the error
// response itself when the lookup fails.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*store.Document, bool) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.store.GetDocument(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return doc, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
