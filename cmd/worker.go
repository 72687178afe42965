package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/credential-vault/internal/core/database"
	"github.com/frahmantamala/credential-vault/internal/core/metrics"
	"github.com/frahmantamala/credential-vault/internal/credential"
	credentialPostgres "github.com/frahmantamala/credential-vault/internal/credential/postgres"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that run outside the HTTP server, such as the share token reaper.`,
}

var reaperWorkerCmd = &cobra.Command{
	Use:   "reaper",
	Short: "Start the expired share token reaper",
	Long:  `Periodically delete share tokens (and their access rows) that expired longer ago than the retention window`,
	Run: func(cmd *cobra.Command, args []string) {
		startReaperWorker()
	},
}

var (
	reaperSchedule  string
	reaperRetention time.Duration
	reaperOnce      bool
)

func startReaperWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogger(config)
	logger := logger.LoggerWrapper()

	db, err := database.Open(config.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	schedule := getStringFlag(reaperSchedule, config.Sharing.ReaperSchedule)
	retention := config.Sharing.ReaperRetention
	if reaperRetention > 0 {
		retention = reaperRetention
	}

	reaper := credential.NewReaper(credentialPostgres.NewShareRepository(db), retention, metrics.New(), logger)

	if reaperOnce {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := reaper.Sweep(ctx)
		if err != nil {
			logger.Error("share token sweep failed", "error", err)
			os.Exit(1)
		}
		logger.Info("share token sweep finished", "removed", n)
		return
	}

	if err := reaper.Start(schedule); err != nil {
		logger.Error("failed to start reaper", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("reaper worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info("received signal, shutting down reaper worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reaper.Stop(ctx)
	if ctx.Err() != nil {
		logger.Warn("shutdown timeout reached, forcing exit")
		return
	}
	logger.Info("reaper worker shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	reaperWorkerCmd.Flags().StringVar(&reaperSchedule, "schedule", "", "Cron schedule (overrides config)")
	reaperWorkerCmd.Flags().DurationVar(&reaperRetention, "retention", 0, "Keep expired tokens this long (overrides config)")
	reaperWorkerCmd.Flags().BoolVar(&reaperOnce, "once", false, "Run a single sweep and exit")

	workerCmd.AddCommand(reaperWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
