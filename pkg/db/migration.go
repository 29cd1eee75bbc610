package db

import (
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending migration found under the directory of fsys
// named after the driver ("sqlite" or "postgres"). Applied versions are skipped.
func Migrate(r *DB, fsys fs.FS) error {
	dialect, dir := "sqlite3", "sqlite"
	if r.driver == DriverPostgres {
		dialect, dir = "postgres", "postgres"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())

	sqlDB, err := r.migrationConn()
	if err != nil {
		return err
	}
	if r.driver == DriverPostgres {
		defer sqlDB.Close()
	}
	if err = goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err == nil {
		logger.Debug("database schema is up to date", "driver", r.driver, "version", version)
	}
	return nil
}

// migrationConn reuses the gorm pool for sqlite. Postgres migrations run on a
// dedicated lib/pq connection so goose never holds a pooled pgx connection.
func (r *DB) migrationConn() (*sql.DB, error) {
	if r.driver != DriverPostgres {
		return r.write.DB()
	}
	if r.dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	return sql.Open("postgres", r.dsn)
}
