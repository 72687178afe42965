package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "credential-vault",
	Short: "Credential Vault",
	Long:  `Multi-tenant credential store with role-based access control and time-boxed share links.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}
	return &cfg, nil
}

// setDefaults covers the booleans ApplyDefaults cannot tell apart from an explicit false.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http_server.allowed_origins", "*")
	v.SetDefault("http_server.read_header_timeout", "5s")
	v.SetDefault("http_server.read_timeout", "15s")
	v.SetDefault("http_server.write_timeout", "15s")
	v.SetDefault("http_server.idle_timeout", "60s")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("sharing.fail_on_email_notify_error", true)
	v.SetDefault("sharing.fail_on_department_notify_error", false)
	v.SetDefault("observability.metrics.enabled", true)
}

func initLogger(cfg *internal.Config) {
	logger.Init(logger.Options{
		Env:    cfg.Observability.Logging.Env,
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
