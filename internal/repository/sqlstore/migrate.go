package sqlstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun/migrate"

	"github.com/sakif/secure-review/internal/repository/sqlstore/migrations"
)

func (db *DB) migrator() *migrate.Migrator {
	return migrate.NewMigrator(db.bun, migrations.Migrations)
}

// Migrate applies every pending migration as one group.
func (db *DB) Migrate(ctx context.Context) (*migrate.MigrationGroup, error) {
	migrator := db.migrator()

	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: init migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	if group.IsZero() {
		db.logger.Info("database is up to date")
	} else {
		db.logger.Info("database migrated", "group", group.String())
	}
	return group, nil
}

// Rollback reverts the last applied migration group.
func (db *DB) Rollback(ctx context.Context) (*migrate.MigrationGroup, error) {
	migrator := db.migrator()

	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: init migrations: %w", err)
	}

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: rollback: %w", err)
	}

	if group.IsZero() {
		db.logger.Info("nothing to roll back")
	} else {
		db.logger.Info("database rolled back", "group", group.String())
	}
	return group, nil
}

// MigrationStatus lists all known migrations with their applied state.
func (db *DB) MigrationStatus(ctx context.Context) (migrate.MigrationSlice, error) {
	migrator := db.migrator()

	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: init migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: migration status: %w", err)
	}
	return ms, nil
}
