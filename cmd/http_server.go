package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/app"
	"github.com/frahmantamala/credential-vault/internal/core/database"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests. The share token reaper runs in the same process.`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	App    *app.App
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	log := deps.Logger

	if err := deps.App.Reaper.Start(deps.Config.Sharing.ReaperSchedule); err != nil {
		log.Error("failed to start share reaper", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	log.Info("Starting HTTP server", "address", addr, "db_driver", deps.Config.Database.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.App.Handler(),
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		if err := deps.App.Shutdown(ctx); err != nil {
			log.Error("Background shutdown error", "error", err)
		}
		closeDB(deps.App, log)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	log.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(config)
	log := logger.LoggerWrapper()

	db, err := database.Open(config.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	application, err := app.New(context.Background(), config, db, log, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return &Dependencies{
		Config: config,
		App:    application,
		Logger: log,
	}, nil
}

func closeDB(a *app.App, log *slog.Logger) {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("Database close error", "error", err)
	}
}
