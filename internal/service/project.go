package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/repository"
)

type ProjectService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewProjectService(store repository.Store, logger *slog.Logger) *ProjectService {
	return &ProjectService{store: store, logger: logger}
}

type CreateProjectInput struct {
	Name    string  `json:"name"     validate:"required,max=100"`
	RepoURL *string `json:"repo_url" validate:"omitempty,http_url"`
}

func (s *ProjectService) Create(ctx context.Context, userID string, in CreateProjectInput) (*model.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.RepoURL != nil && strings.TrimSpace(*in.RepoURL) == "" {
		in.RepoURL = nil
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	project := &model.Project{
		UserID:  userID,
		Name:    in.Name,
		RepoURL: in.RepoURL,
	}
	if err := s.store.Projects().Create(ctx, project); err != nil {
		return nil, fmt.Errorf("service/project: creating project: %w", err)
	}

	s.logger.Info("project created", slog.String("projectID", project.ID), slog.String("userID", userID))
	return project, nil
}

func (s *ProjectService) List(ctx context.Context, userID string) ([]*model.Project, error) {
	projects, err := s.store.Projects().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	return ownedProject(ctx, s.store.Projects(), userID, id)
}

// ListAnalyses returns the project's analyses, newest first, with their
// vulnerabilities.
func (s *ProjectService) ListAnalyses(ctx context.Context, userID, id string) ([]*model.Analysis, error) {
	project, err := ownedProject(ctx, s.store.Projects(), userID, id)
	if err != nil {
		return nil, err
	}

	analyses, err := s.store.Analyses().ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing analyses: %w", err)
	}
	return analyses, nil
}
