// Package database opens the relational store for either supported driver and hands the same
// pool to gorm, sqlx and goose.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects, applies the pool settings and pings. SQLite is limited to one open connection
// because it serializes writers anyway.
func Open(cfg internal.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.GetDSN())
	case DriverSQLite:
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected", "driver", cfg.Driver, "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

func configurePool(sqlDB *sql.DB, cfg internal.DatabaseConfig) {
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// SQLX wraps the gorm pool. The driver name only selects the bind variable style.
func SQLX(db *gorm.DB, driver string) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, sqlxDriverName(driver)), nil
}

func sqlxDriverName(driver string) string {
	if driver == DriverSQLite {
		return "sqlite3"
	}
	return "pgx"
}

// GooseDialect maps the configured driver to the goose dialect name.
func GooseDialect(driver string) string {
	if driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}
