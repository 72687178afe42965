package cmd

import (
	"context"
	"log"

	"github.com/frahmantamala/credential-vault/internal/core/database"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	initLogger(cfg)

	gdb, err := database.Open(cfg.Database, logger.LoggerWrapper())
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	db, err := gdb.DB()
	if err != nil {
		log.Fatalf("goose: failed to get sql.DB: %v\n", err)
	}
	defer db.Close()

	if err := goose.SetDialect(database.GooseDialect(cfg.Database.Driver)); err != nil {
		log.Fatalf("goose: %v", err)
	}
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	return nil
}
