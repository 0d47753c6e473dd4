package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, stmt := range []string{
			"CREATE INDEX IF NOT EXISTS projects_user_id_idx ON projects (user_id)",
			"CREATE INDEX IF NOT EXISTS analyses_project_id_idx ON analyses (project_id, created_at)",
			"CREATE INDEX IF NOT EXISTS vulnerabilities_analysis_id_idx ON vulnerabilities (analysis_id)",
		} {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, idx := range []string{
			"vulnerabilities_analysis_id_idx",
			"analyses_project_id_idx",
			"projects_user_id_idx",
		} {
			if _, err := db.NewRaw("DROP INDEX IF EXISTS " + idx).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
