// Package sqlstore implements the repository interfaces with bun.
//
// The DSN scheme picks the backend: postgres:// and postgresql:// go through
// pgdriver, anything else is handed to the embedded modernc SQLite driver
// (a file path, "file::memory:" or ":memory:").
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/secure-review/internal/apperror"
	"github.com/sakif/secure-review/internal/repository"
)

// DB owns the connection pool.
type DB struct {
	bun    *bun.DB
	logger *slog.Logger
}

func Open(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	var db *bun.DB

	if isPostgres(dsn) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())

		maxOpenConns := 4 * runtime.GOMAXPROCS(0)
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	} else {
		sqldb, err := sql.Open("sqlite", strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("sqlstore: opening sqlite: %w", err)
		}
		// SQLite allows one writer; a single connection also keeps an
		// in-memory database alive for the lifetime of the pool.
		sqldb.SetMaxOpenConns(1)
		sqldb.SetConnMaxLifetime(0)
		db = bun.NewDB(sqldb, sqlitedialect.New())

		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlstore: enabling foreign keys: %w", err)
		}
	}

	db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	logger.Info("database connected", "postgres", isPostgres(dsn))
	return &DB{bun: db, logger: logger}, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (db *DB) Ping(ctx context.Context) error {
	return db.bun.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.bun.Close()
}

// Bun exposes the underlying handle for the migrator.
func (db *DB) Bun() *bun.DB {
	return db.bun
}

// Store returns a non-transactional Store over the pool.
func (db *DB) Store() *Store {
	return &Store{db: db.bun, idb: db.bun}
}

var _ repository.Store = (*Store)(nil)

// Store binds the repositories to either the pool or one transaction.
type Store struct {
	db  *bun.DB
	idb bun.IDB
}

func (s *Store) Users() repository.UserRepository {
	return &UserDB{idb: s.idb}
}

func (s *Store) Projects() repository.ProjectRepository {
	return &ProjectDB{idb: s.idb}
}

func (s *Store) Analyses() repository.AnalysisRepository {
	return &AnalysisDB{idb: s.idb}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if _, ok := s.idb.(bun.Tx); ok {
		return fn(ctx, s)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: s.db, idb: tx})
	})
}

// isUniqueViolation recognises unique-constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		// Primary result code only, when extended codes are off.
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// translate maps driver errors into the apperror taxonomy.
func translate(err error, resource, key, field string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound(resource, key)
	case isUniqueViolation(err):
		return fmt.Errorf("sqlstore: %s: %w", resource, apperror.Conflict(resource, field))
	default:
		return fmt.Errorf("sqlstore: %s %s: %w", resource, key, err)
	}
}
