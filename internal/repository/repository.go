// Package repository declares the persistence contract used by the services.
//
// Implementations translate storage errors into the apperror taxonomy:
// a missing row is apperror.ErrNotFound and a uniqueness violation is
// apperror.ErrConflict, so callers never see driver-specific errors.
package repository

import (
	"context"

	"github.com/sakif/secure-review/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Project, error)
}

type AnalysisRepository interface {
	Create(ctx context.Context, analysis *model.Analysis) error
	GetByID(ctx context.Context, id string) (*model.Analysis, error)
	// Finish records the final status, summary and score of an analysis.
	Finish(ctx context.Context, analysis *model.Analysis) error
	// ListByProject returns analyses newest first, vulnerabilities included.
	ListByProject(ctx context.Context, projectID string) ([]*model.Analysis, error)
	CreateVulnerabilities(ctx context.Context, vulns []*model.Vulnerability) error
}

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Users() UserRepository
	Projects() ProjectRepository
	Analyses() AnalysisRepository

	// RunInTx runs fn with a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling RunInTx on a transactional Store reuses the transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
