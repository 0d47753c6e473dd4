package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/xid"
	"github.com/uptrace/bun"

	"github.com/sakif/secure-review/internal/model"
	"github.com/sakif/secure-review/internal/repository"
)

var _ repository.AnalysisRepository = (*AnalysisDB)(nil)

type AnalysisDB struct {
	idb bun.IDB
}

func orderVulnerabilities(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("v.id ASC")
}

func (r *AnalysisDB) Create(ctx context.Context, analysis *model.Analysis) error {
	analysis.ID = xid.New().String()
	analysis.CreatedAt = time.Now().UTC()
	if analysis.Status == "" {
		analysis.Status = model.AnalysisPending
	}

	if _, err := r.idb.NewInsert().Model(analysis).Exec(ctx); err != nil {
		return translate(err, "analysis", analysis.ID, "id")
	}
	return nil
}

func (r *AnalysisDB) GetByID(ctx context.Context, id string) (*model.Analysis, error) {
	analysis := new(model.Analysis)
	err := r.idb.NewSelect().
		Model(analysis).
		Relation("Vulnerabilities", orderVulnerabilities).
		Where("a.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "analysis", id, "id")
	}
	return analysis, nil
}

func (r *AnalysisDB) Finish(ctx context.Context, analysis *model.Analysis) error {
	res, err := r.idb.NewUpdate().
		Model(analysis).
		Column("status", "summary", "security_score").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "analysis", analysis.ID, "id")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return translate(sql.ErrNoRows, "analysis", analysis.ID, "id")
	}
	return nil
}

func (r *AnalysisDB) ListByProject(ctx context.Context, projectID string) ([]*model.Analysis, error) {
	analyses := make([]*model.Analysis, 0)
	err := r.idb.NewSelect().
		Model(&analyses).
		Relation("Vulnerabilities", orderVulnerabilities).
		Where("a.project_id = ?", projectID).
		OrderExpr("a.created_at DESC, a.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "analysis", projectID, "project_id")
	}
	return analyses, nil
}

// CreateVulnerabilities assigns IDs and bulk-inserts the rows.
func (r *AnalysisDB) CreateVulnerabilities(ctx context.Context, vulns []*model.Vulnerability) error {
	if len(vulns) == 0 {
		return nil
	}
	for _, v := range vulns {
		v.ID = xid.New().String()
	}
	if _, err := r.idb.NewInsert().Model(&vulns).Exec(ctx); err != nil {
		return translate(err, "vulnerability", vulns[0].AnalysisID, "id")
	}
	return nil
}
