// Package api exposes the HTTP surface: area CRUD and point analysis.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbemaps/geofence/internal/analysis"
	"github.com/urbemaps/geofence/internal/area"
	"github.com/urbemaps/geofence/internal/geometry"
	"github.com/urbemaps/geofence/internal/model"
)

// Handler wires the repository and analysis engine into HTTP routes.
type Handler struct {
	repo   *area.Repository
	engine *analysis.Engine
}

// NewHandler returns a handler over the given repository and engine.
func NewHandler(repo *area.Repository, engine *analysis.Engine) *Handler {
	return &Handler{repo: repo, engine: engine}
}

// Router builds the chi router for all endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Get("/areas", h.listAreas)
		r.Post("/areas", h.upsertArea)
		r.Get("/areas/{slug}", h.getArea)
		r.Patch("/areas/{slug}", h.patchArea)
		r.Delete("/areas/{slug}", h.deleteArea)
	})
	return r
}

type analyzeRequest struct {
	Target   model.Point `json:"target"`
	Areas    []string    `json:"areas"`
	Agencies []string    `json:"agencias"`
}

type analyzeResponse struct {
	Results []analysis.Result `json:"results"`
	Errors  []string          `json:"errors,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Target.Valid() {
		writeError(w, http.StatusBadRequest, "target out of range")
		return
	}

	results, errs, err := h.engine.Analyze(r.Context(), req.Target, req.Areas, req.Agencies)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if results == nil {
		results = []analysis.Result{}
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Results: results, Errors: errs})
}

func (h *Handler) listAreas(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.repo.List(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) getArea(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	rec, ok, err := h.repo.GetRaw(r.Context(), slug)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Area '%s' not found.", slug))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) upsertArea(w http.ResponseWriter, r *http.Request) {
	var a model.Area
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if a.Relevance == 0 {
		a.Relevance = 1
	}
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Upsert(r.Context(), a); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Area '%s' saved.", a.Slug),
	})
}

func (h *Handler) patchArea(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var patch model.AreaPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	merged, err := h.repo.Patch(r.Context(), slug, patch)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Area '%s' updated.", slug),
		"area":    merged,
	})
}

func (h *Handler) deleteArea(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	existed, err := h.repo.Delete(r.Context(), slug)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Area '%s' not found.", slug))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Area '%s' removed.", slug),
	})
}

// writeFailure maps domain errors to status codes. Anything unrecognized is
// a 500 and logged.
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, area.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case eris.Is(err, area.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case eris.Is(err, geometry.ErrInvalidGeometry), eris.Is(err, analysis.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
