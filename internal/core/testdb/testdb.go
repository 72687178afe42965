// Package testdb opens an in-memory SQLite schema for repository and service tests.
package testdb

import (
	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated database. A single connection keeps every query on the same in-memory schema.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&accessDatamodel.Permission{},
		&accessDatamodel.Role{},
		&orgDatamodel.Company{},
		&orgDatamodel.Department{},
		&userDatamodel.User{},
		&credentialDatamodel.Credential{},
		&credentialDatamodel.ShareToken{},
		&credentialDatamodel.ShareAccess{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// SQLX wraps the same pool for the sqlx read paths.
func SQLX(db *gorm.DB) *sqlx.DB {
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	return sqlx.NewDb(sqlDB, "sqlite3")
}
