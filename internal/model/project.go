package model

import (
	"time"

	"github.com/uptrace/bun"
)

type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p"`

	ID        string    `bun:"id,pk"              json:"id"`
	UserID    string    `bun:"user_id,notnull"    json:"user_id"`
	Name      string    `bun:"name,notnull"       json:"name"`
	RepoURL   *string   `bun:"repo_url"           json:"repo_url,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
