package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/secure-review/internal/analyzer"
	"github.com/sakif/secure-review/internal/auth"
	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/service"
)

type AnalysisService interface {
	Analyze(ctx context.Context, userID string, req analyzer.Request) (*analyzer.Result, error)
	Get(ctx context.Context, userID, id string) (*model.Analysis, error)
}

var _ AnalysisService = (*service.AnalysisService)(nil)

type AnalyzeHandler struct {
	analysis AnalysisService
	logger   *slog.Logger
}

func NewAnalyzeHandler(analysis AnalysisService, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		logger:   logger,
	}
}

// HandleAnalyze answers 200 even when the provider failed; the result then
// carries the fallback summary and a zero score.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzer.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.analysis.Analyze(r.Context(), userID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns one stored analysis with its vulnerabilities. Analyses
// in projects the caller does not own are reported as not found.
func (h *AnalyzeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	analysis, err := h.analysis.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}
