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

var _ repository.UserRepository = (*UserDB)(nil)

type UserDB struct {
	idb bun.IDB
}

// Create assigns the ID and creation time, then inserts the user.
// A duplicate email or GitHub id is reported as apperror.ErrConflict.
func (r *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	if _, err := r.idb.NewInsert().Model(user).Exec(ctx); err != nil {
		field := "email"
		if user.GitHubID != nil {
			field = "email or GitHub account"
		}
		return translate(err, "user", user.Email, field)
	}
	return nil
}

func (r *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user := new(model.User)
	err := r.idb.NewSelect().Model(user).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, translate(err, "user", id, "id")
	}
	return user, nil
}

func (r *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user := new(model.User)
	err := r.idb.NewSelect().Model(user).Where("u.email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, translate(err, "user", email, "email")
	}
	return user, nil
}

// Update writes the mutable profile columns.
func (r *UserDB) Update(ctx context.Context, user *model.User) error {
	res, err := r.idb.NewUpdate().
		Model(user).
		Column("hashed_password", "full_name", "github_id", "avatar_url").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "user", user.ID, "GitHub account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return translate(sql.ErrNoRows, "user", user.ID, "id")
	}
	return nil
}
