// Package repo implements the data persistence layer for airports and
// flights, backed by GORM. This file contains database bootstrapping helpers
// for SQLite (pure Go driver) and PostgreSQL, the read/write store pair, and
// schema migrations.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-flight-info-backend/internal/config"
	"github.com/tbourn/go-flight-info-backend/internal/domain"
)

// Stores pairs the handle used by commands (Write) with the handle used by
// queries and airport lookups (Read). Both may point at the same pool.
type Stores struct {
	Write *gorm.DB
	Read  *gorm.DB
}

// Open connects both stores described by cfg. When ReadDSN equals WriteDSN a
// single pool is shared.
func Open(cfg config.DBConfig) (*Stores, error) {
	write, err := openDriver(cfg.Driver, cfg.WriteDSN, false)
	if err != nil {
		return nil, fmt.Errorf("open write store: %w", err)
	}
	if cfg.ReadDSN == "" || cfg.ReadDSN == cfg.WriteDSN {
		return &Stores{Write: write, Read: write}, nil
	}
	read, err := openDriver(cfg.Driver, cfg.ReadDSN, true)
	if err != nil {
		_ = closeDB(write)
		return nil, fmt.Errorf("open read store: %w", err)
	}
	return &Stores{Write: write, Read: read}, nil
}

// Close releases both pools.
func (s *Stores) Close() error {
	if s == nil {
		return nil
	}
	err := closeDB(s.Write)
	if s.Read != s.Write {
		err = errors.Join(err, closeDB(s.Read))
	}
	return err
}

func openDriver(driver, dsn string, readOnly bool) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case config.DriverPostgres:
		db, err = OpenPostgres(dsn)
	case config.DriverSQLite, "":
		if readOnly {
			dsn = withPragma(dsn, "query_only(1)")
		}
		db, err = OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		_ = closeDB(db)
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	dsn := withPragma(withPragma(path, "foreign_keys(1)"), "busy_timeout(5000)")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenPostgres connects to PostgreSQL through the pgx based GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates or updates the airports, flights and idempotency tables.
// Airports go first so the flight foreign keys can be created.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Airport{},
		&domain.Flight{},
		&domain.Idempotency{},
	)
}

// withPragma appends a connection-level pragma to a SQLite DSN so it applies
// to every pooled connection, not just the one that ran the PRAGMA statement.
func withPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}

func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
