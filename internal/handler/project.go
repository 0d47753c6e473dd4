package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/secure-review/internal/auth"
	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/service"
)

type ProjectService interface {
	Create(ctx context.Context, userID string, in service.CreateProjectInput) (*model.Project, error)
	List(ctx context.Context, userID string) ([]*model.Project, error)
	Get(ctx context.Context, userID, id string) (*model.Project, error)
	ListAnalyses(ctx context.Context, userID, id string) ([]*model.Analysis, error)
}

var _ ProjectService = (*service.ProjectService)(nil)

// ProjectHandler serves the project routes. They sit behind
// auth.RequireAuth, so a user id is always present in the context.
type ProjectHandler struct {
	projects ProjectService
	logger   *slog.Logger
}

func NewProjectHandler(projects ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		logger:   logger,
	}
}

func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	project, err := h.projects.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}

	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	project, err := h.projects.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	analyses, err := h.projects.ListAnalyses(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if analyses == nil {
		analyses = []*model.Analysis{}
	}

	writeJSON(w, http.StatusOK, analyses)
}
