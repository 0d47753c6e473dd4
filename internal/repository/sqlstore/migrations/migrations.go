// Package migrations holds the schema history. Each file registers one
// migration; bun derives its name from the file name.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
