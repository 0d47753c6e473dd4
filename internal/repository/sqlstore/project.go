package sqlstore

import (
	"context"
	"time"

	"github.com/rs/xid"
	"github.com/uptrace/bun"

	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/repository"
)

var _ repository.ProjectRepository = (*ProjectDB)(nil)

type ProjectDB struct {
	idb bun.IDB
}

func (r *ProjectDB) Create(ctx context.Context, project *model.Project) error {
	project.ID = xid.New().String()
	project.CreatedAt = time.Now().UTC()

	if _, err := r.idb.NewInsert().Model(project).Exec(ctx); err != nil {
		return translate(err, "project", project.ID, "id")
	}
	return nil
}

func (r *ProjectDB) GetByID(ctx context.Context, id string) (*model.Project, error) {
	project := new(model.Project)
	err := r.idb.NewSelect().Model(project).Where("p.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, translate(err, "project", id, "id")
	}
	return project, nil
}

// ListByUser returns the user's projects, newest first.
func (r *ProjectDB) ListByUser(ctx context.Context, userID string) ([]*model.Project, error) {
	projects := make([]*model.Project, 0)
	err := r.idb.NewSelect().
		Model(&projects).
		Where("p.user_id = ?", userID).
		OrderExpr("p.created_at DESC, p.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "project", userID, "user_id")
	}
	return projects, nil
}
