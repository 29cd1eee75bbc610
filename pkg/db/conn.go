package db

import (
	"database/sql"
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver       string
	SQLitePath   string
	PostgresDSN  string
	MaxOpenConns int
	Debug        bool
}

// sqliteDSN enables WAL, NORMAL sync, foreign keys and a busy timeout on every
// connection the pool opens.
func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	return fmt.Sprintf("file:%s?%s", path, params.Encode())
}

func memoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", url.PathEscape(name))
}

func dialector(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "", DriverSQLite:
		if config.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is empty")
		}
		return sqlite.Open(sqliteDSN(config.SQLitePath)), nil
	case DriverPostgres:
		if config.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is empty")
		}
		return postgres.Open(config.PostgresDSN), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", config.Driver)
	}
}

func configurePool(db *gorm.DB, maxOpen int) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
	}
	return sqlDB, nil
}
