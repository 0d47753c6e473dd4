package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/secure-review/internal/analyzer"
	"github.com/sakif/secure-review/internal/apperror"
	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/repository"
)

// MaxCodeLength caps the snippet size sent to the model.
const MaxCodeLength = 100_000

type AnalysisService struct {
	analyzer analyzer.Analyzer
	store    repository.Store
	logger   *slog.Logger
}

func NewAnalysisService(a analyzer.Analyzer, store repository.Store, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		analyzer: a,
		store:    store,
		logger:   logger,
	}
}

// Analyze validates req, runs the analyzer and, when req names a project,
// stores the outcome as an Analysis with one Vulnerability per issue.
// userID is empty for anonymous callers, who cannot attach a project.
func (s *AnalysisService) Analyze(ctx context.Context, userID string, req analyzer.Request) (*analyzer.Result, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, apperror.ValidationFailed("code", "Code cannot be empty")
	}
	if len(req.Code) > MaxCodeLength {
		return nil, apperror.ValidationFailed("code", fmt.Sprintf("Code must be at most %d bytes", MaxCodeLength))
	}
	if strings.TrimSpace(req.Language) == "" {
		return nil, apperror.ValidationFailed("language", "language is required")
	}

	if req.ProjectID == "" {
		return s.analyzer.AnalyzeCode(ctx, req), nil
	}

	if userID == "" {
		return nil, apperror.Unauthorized("Authentication is required to attach an analysis to a project")
	}
	project, err := ownedProject(ctx, s.store.Projects(), userID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	analysis := &model.Analysis{ProjectID: project.ID, Status: model.AnalysisPending}
	if err := s.store.Analyses().Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("service/analysis: creating analysis: %w", err)
	}

	result := s.analyzer.AnalyzeCode(ctx, req)

	// A client that hangs up mid-call gets a degraded result; the row
	// must still leave pending, so recording ignores cancellation.
	if err := s.record(context.WithoutCancel(ctx), analysis, req, result); err != nil {
		return nil, err
	}

	s.logger.Info("analysis stored",
		slog.String("analysisID", analysis.ID),
		slog.String("projectID", project.ID),
		slog.String("status", string(analysis.Status)),
		slog.Int("issues", len(result.Issues)),
	)
	return result, nil
}

func (s *AnalysisService) record(ctx context.Context, analysis *model.Analysis, req analyzer.Request, result *analyzer.Result) error {
	analysis.Status = model.AnalysisCompleted
	if result.Degraded {
		analysis.Status = model.AnalysisFailed
	}
	analysis.Summary = result.Summary
	analysis.SecurityScore = result.SecurityScore

	file := ""
	if req.Filename != nil {
		file = *req.Filename
	}
	vulns := make([]*model.Vulnerability, 0, len(result.Issues))
	for _, issue := range result.Issues {
		vulns = append(vulns, &model.Vulnerability{
			AnalysisID:  analysis.ID,
			Type:        issue.Type,
			Severity:    issue.Severity,
			File:        file,
			Line:        issue.Location,
			Description: issue.Description,
		})
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Analyses().CreateVulnerabilities(ctx, vulns); err != nil {
			return err
		}
		return tx.Analyses().Finish(ctx, analysis)
	})
	if err != nil {
		return fmt.Errorf("service/analysis: recording analysis %s: %w", analysis.ID, err)
	}
	analysis.Vulnerabilities = vulns
	return nil
}

// Get returns one stored analysis with its vulnerabilities. Analyses in
// projects the caller does not own are reported as not found.
func (s *AnalysisService) Get(ctx context.Context, userID, id string) (*model.Analysis, error) {
	analysis, err := s.store.Analyses().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("analysis", id)
		}
		return nil, fmt.Errorf("service/analysis: fetching analysis %s: %w", id, err)
	}

	if _, err := ownedProject(ctx, s.store.Projects(), userID, analysis.ProjectID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("analysis", id)
		}
		return nil, err
	}

	if analysis.Vulnerabilities == nil {
		analysis.Vulnerabilities = []*model.Vulnerability{}
	}
	return analysis, nil
}

// ownedProject hides other users' projects behind ErrNotFound.
func ownedProject(ctx context.Context, projects repository.ProjectRepository, userID, projectID string) (*model.Project, error) {
	project, err := projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("project", projectID)
		}
		return nil, fmt.Errorf("service: fetching project %s: %w", projectID, err)
	}
	if project.UserID != userID {
		return nil, apperror.NotFound("project", projectID)
	}
	return project, nil
}
