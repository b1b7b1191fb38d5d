// Package database opens the application database and runs its migrations.
//
// TURSO_DB_URL selects the driver:
//
//	libsql://, https://, wss://   Turso through libsql-client-go
//	file:, sqlite:, :memory:      embedded sqlite (modernc.org/sqlite)
//	postgres://, postgresql://    PostgreSQL (lib/pq)
package database

import (
	"context"
	"database/sql"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/tdm/core"
	appfs "github.com/trezcool/tdm/fs"
)

const (
	DriverLibsql   = "libsql"
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"

	migrationsDir = "migrations"
)

var gooseRunContext = goose.RunContext // mockable

func init() {
	sqlx.BindDriver(DriverLibsql, sqlx.QUESTION)
	sqlx.BindDriver(DriverSqlite, sqlx.QUESTION)
}

// DSN returns the driver name and data source name for conf.
func DSN(conf core.DatabaseConfig) (driver, dsn string, err error) {
	raw := conf.URL
	switch {
	case raw == ":memory:" || strings.HasPrefix(raw, "file:") || strings.HasPrefix(raw, "sqlite:"):
		name := strings.TrimPrefix(raw, "sqlite:")
		if name == ":memory:" {
			name = "file::memory:"
		}
		sep := "?"
		if strings.Contains(name, "?") {
			sep = "&"
		}
		return DriverSqlite, name + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil

	case strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw, nil

	case strings.HasPrefix(raw, "libsql://") || strings.HasPrefix(raw, "https://") ||
		strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "wss://") || strings.HasPrefix(raw, "ws://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", errors.Wrap(err, "parsing database url")
		}
		if conf.AuthToken != "" {
			q := u.Query()
			q.Set("authToken", conf.AuthToken)
			u.RawQuery = q.Encode()
		}
		return DriverLibsql, u.String(), nil
	}
	return "", "", errors.Errorf("unsupported database url %q", raw)
}

// Open connects to the configured database and waits for it to answer.
func Open(ctx context.Context, conf core.DatabaseConfig) (*sqlx.DB, error) {
	driver, dsn, err := DSN(conf)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == DriverSqlite {
		// one writer; also keeps a single in-memory database alive
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	if err = ping(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Dialect returns the goose dialect and migrations directory matching db's driver.
func Dialect(db *sqlx.DB) (dialect, dir string) {
	if db.DriverName() == DriverPostgres {
		return "postgres", path.Join(migrationsDir, "postgres")
	}
	return "sqlite3", path.Join(migrationsDir, "sqlite")
}

// Migrate runs a goose command (up, down, status, redo, version...) with the embedded migrations.
func Migrate(ctx context.Context, db *sqlx.DB, command string, args ...string) error {
	dialect, dir := Dialect(db)
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := gooseRunContext(ctx, command, db.DB, dir, args...); err != nil {
		return errors.Wrapf(err, "running migrations %q", command)
	}
	return nil
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	// remote libsql errors only carry sqlite's message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
