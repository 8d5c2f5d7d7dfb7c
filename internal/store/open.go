package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "pgx"
)

func wrapOpen(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// Open opens the database behind dsn. For sqlite dsn is a file path or
// ":memory:", for pgx it is a postgres connection string.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSqlite:
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			err := os.MkdirAll(filepath.Dir(dsn), 0777)
			if err != nil {
				return nil, wrapOpen(err)
			}
		}
	case DriverPostgres:
	default:
		return nil, wrapOpen(fmt.Errorf("unsupported driver '%s'", driver))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, wrapOpen(err)
	}

	if driver == DriverSqlite {
		// a single connection serializes writers and keeps ":memory:"
		// databases from splitting across connections
		db.SetMaxOpenConns(1)
		if dsn != ":memory:" {
			_, err = db.Exec("PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return nil, wrapOpen(err)
			}
		}
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, wrapOpen(err)
	}
	return db, nil
}

// Migrate creates every table that does not exist yet. Statements are sent
// one at a time so drivers that refuse multi statement execs work too.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(Schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
