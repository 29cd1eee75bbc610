package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type txContextKey string

const txKey txContextKey = "trx"

type DB struct {
	read   *gorm.DB
	write  *gorm.DB
	driver string
	dsn    string
}

// gormConfig stamps created_at/updated_at in UTC at second precision, the same
// form model.NormalizeTime gives user supplied dates.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	}
}

func Create(config Config) (*gorm.DB, error) {
	d, err := dialector(config)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, gormConfig())
	if err != nil {
		return nil, err
	}

	maxOpen := config.MaxOpenConns
	if maxOpen == 0 && (config.Driver == "" || config.Driver == DriverSQLite) {
		// sqlite allows a single writer; one pooled connection keeps writers queued in Go.
		maxOpen = 1
	}
	if _, err = configurePool(db, maxOpen); err != nil {
		return nil, err
	}

	if config.Debug {
		db = db.Debug()
	}
	return db, nil
}

// Open returns a DB whose reads and writes share one connection pool.
func Open(config Config) (*DB, error) {
	db, err := Create(config)
	if err != nil {
		return nil, err
	}
	driver := config.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	return &DB{read: db, write: db, driver: driver, dsn: config.PostgresDSN}, nil
}

func CreateReadWrite(readConfig Config, writeConfig Config) (*DB, error) {
	read, err := Create(readConfig)
	if err != nil {
		return nil, err
	}
	write, err := Create(writeConfig)
	if err != nil {
		return nil, err
	}
	return &DB{read: read, write: write, driver: writeConfig.Driver, dsn: writeConfig.PostgresDSN}, nil
}

// NewSQLiteMemory opens a private in-memory database named name. Connections
// opened with the same name share the data until the last one closes.
func NewSQLiteMemory(name string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(memoryDSN(name)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	if _, err = configurePool(db, 1); err != nil {
		return nil, err
	}
	return &DB{read: db, write: db, driver: DriverSQLite}, nil
}

func (r *DB) Driver() string {
	return r.driver
}

func (r *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, txKey, tx)
		return fn(ctx)
	})
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	tx = r.write.WithContext(ctx)

	return tx
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	tx = r.read.WithContext(ctx)

	return tx
}

func (r *DB) Ping(ctx context.Context) error {
	sqlDB, err := r.write.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *DB) Close() error {
	sqlDB, err := r.write.DB()
	if err != nil {
		return err
	}
	if r.read != r.write {
		if readDB, err := r.read.DB(); err == nil {
			_ = readDB.Close()
		}
	}
	return sqlDB.Close()
}
