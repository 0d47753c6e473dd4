package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/sakif/secure-review/internal/model"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewCreateTable().
			Model((*model.User)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*model.Project)(nil)).
			IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("id")`).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*model.Analysis)(nil)).
			IfNotExists().
			ForeignKey(`("project_id") REFERENCES "projects" ("id")`).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*model.Vulnerability)(nil)).
			IfNotExists().
			ForeignKey(`("analysis_id") REFERENCES "analyses" ("id")`).
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		for _, m := range []any{
			(*model.Vulnerability)(nil),
			(*model.Analysis)(nil),
			(*model.Project)(nil),
			(*model.User)(nil),
		} {
			if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
