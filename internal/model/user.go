package model

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an account created by password registration or by the first
// GitHub login. Email is unique across all users.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"                json:"id"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash *string   `bun:"hashed_password"      json:"-"` // nil for GitHub-only accounts
	FullName     *string   `bun:"full_name"            json:"full_name,omitempty"`
	GitHubID     *string   `bun:"github_id,unique"     json:"github_id,omitempty"`
	AvatarURL    *string   `bun:"avatar_url"           json:"avatar_url,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull"   json:"created_at"`
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
