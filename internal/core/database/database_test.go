package database_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/database"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pressly/goose/v3"
)

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "migrations")
}

var _ = Describe("Database", func() {
	It("rejects an unknown driver", func() {
		_, err := database.Open(internal.DatabaseConfig{Driver: "mysql", Source: "x"}, logger.Discard())
		Expect(err).To(MatchError(ContainSubstring("unsupported database driver")))
	})

	It("maps drivers to goose dialects", func() {
		Expect(database.GooseDialect(database.DriverSQLite)).To(Equal("sqlite3"))
		Expect(database.GooseDialect(database.DriverPostgres)).To(Equal("postgres"))
	})

	It("applies and rolls back every migration on sqlite", func() {
		path := filepath.Join(GinkgoT().TempDir(), "vault.db")
		db, err := database.Open(internal.DatabaseConfig{Driver: database.DriverSQLite, Source: path}, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = sqlDB.Close()
			_ = os.Remove(path)
		})

		Expect(goose.SetDialect(database.GooseDialect(database.DriverSQLite))).To(Succeed())
		goose.SetTableName("schema_migrations")
		ctx := context.Background()
		Expect(goose.UpContext(ctx, sqlDB, migrationsDir())).To(Succeed())

		for _, table := range []string{"permissions", "roles", "role_permissions", "companies", "departments", "users", "credentials", "credential_share_tokens", "credential_share_accesses"} {
			Expect(db.Migrator().HasTable(table)).To(BeTrue(), table)
		}

		sx, err := database.SQLX(db, database.DriverSQLite)
		Expect(err).NotTo(HaveOccurred())
		var n int
		Expect(sx.Get(&n, sx.Rebind("SELECT COUNT(*) FROM users WHERE email = ?"), "nobody@x.com")).To(Succeed())
		Expect(n).To(BeZero())

		Expect(goose.DownToContext(ctx, sqlDB, migrationsDir(), 0)).To(Succeed())
		Expect(db.Migrator().HasTable("credentials")).To(BeFalse())
	})
})
