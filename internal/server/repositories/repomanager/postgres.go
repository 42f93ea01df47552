// Package repomanager wires repository constructors and goose migrations
// for the supported SQL drivers: PostgreSQL through pgx, and SQLite through
// modernc.org/sqlite for local runs and tests.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sujinchoi3/my-todolist/internal/dbx"
	"github.com/sujinchoi3/my-todolist/internal/server/migrations"
	"github.com/sujinchoi3/my-todolist/internal/server/repositories/users"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

// SQLRepositoryManager vends database/sql backed repositories and runs the
// embedded migrations using the goose dialect matching its driver.
type SQLRepositoryManager struct {
	dialect string
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and applies them
// to db.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewRepositoryManager returns a RepositoryManager for the given driver.
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverPgx:
		return &SQLRepositoryManager{dialect: "pgx"}, nil
	case DriverSQLite:
		return &SQLRepositoryManager{dialect: "sqlite3"}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open opens and pings a database for driver/dsn.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverPgx && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(30 * time.Second)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}
