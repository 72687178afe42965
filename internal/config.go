package internal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Sharing       SharingConfig       `mapstructure:"sharing"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	BCryptCost     int           `mapstructure:"bcrypt_cost" validate:"min=4,max=15"`
	SecretKey      string        `mapstructure:"secret_key" validate:"required"`
	LegacyRoleAuth bool          `mapstructure:"legacy_role_auth"`
}

type SharingConfig struct {
	TokenTTL                time.Duration `mapstructure:"token_ttl"`
	FrontendURL             string        `mapstructure:"frontend_url" validate:"required,url"`
	FailOnEmailNotifyError  bool          `mapstructure:"fail_on_email_notify_error"`
	FailOnDeptNotifyError   bool          `mapstructure:"fail_on_department_notify_error"`
	ReaperSchedule          string        `mapstructure:"reaper_schedule"`
	ReaperRetention         time.Duration `mapstructure:"reaper_retention"`
	RedeemRequestsPerSecond float64       `mapstructure:"redeem_requests_per_second"`
	RedeemBurst             int           `mapstructure:"redeem_burst"`
	InvitationTTL           time.Duration `mapstructure:"invitation_ttl"`
}

type NotificationConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=smtp log"`
	Host     string `mapstructure:"smtp_host"`
	Port     int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"smtp_username"`
	Password string `mapstructure:"smtp_password"`
	From     string `mapstructure:"from"`

	// Workers bounds concurrent sends for department fan-out.
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Env    string `mapstructure:"env"`
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Security.SessionTTL <= 0 {
		c.Security.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Sharing.TokenTTL <= 0 {
		c.Sharing.TokenTTL = 24 * time.Hour
	}
	if c.Sharing.InvitationTTL <= 0 {
		c.Sharing.InvitationTTL = 24 * time.Hour
	}
	if c.Sharing.ReaperSchedule == "" {
		c.Sharing.ReaperSchedule = "@every 1h"
	}
	if c.Sharing.RedeemRequestsPerSecond <= 0 {
		c.Sharing.RedeemRequestsPerSecond = 2
	}
	if c.Sharing.RedeemBurst <= 0 {
		c.Sharing.RedeemBurst = 5
	}
	if c.Notification.Driver == "" {
		c.Notification.Driver = "log"
	}
	if c.Notification.Workers <= 0 {
		c.Notification.Workers = 4
	}
	if c.Notification.QueueSize <= 0 {
		c.Notification.QueueSize = 64
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration from plain environment variables (container deployments).
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			OpenAPIPath:       getEnv("OPENAPI_PATH", "./api/openapi.yml"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			SessionTTL:     getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			BCryptCost:     getEnvAsInt("BCRYPT_COST", 10),
			SecretKey:      getEnv("SECRET_KEY", ""),
			LegacyRoleAuth: getEnvAsBool("LEGACY_ROLE_AUTH", false),
		},
		Sharing: SharingConfig{
			TokenTTL:                getEnvAsDuration("SHARE_TOKEN_TTL", 24*time.Hour),
			FrontendURL:             getEnv("FRONTEND_URL", ""),
			FailOnEmailNotifyError:  getEnvAsBool("FAIL_ON_EMAIL_NOTIFY_ERROR", true),
			FailOnDeptNotifyError:   getEnvAsBool("FAIL_ON_DEPARTMENT_NOTIFY_ERROR", false),
			ReaperSchedule:          getEnv("SHARE_REAPER_SCHEDULE", "@every 1h"),
			ReaperRetention:         getEnvAsDuration("SHARE_REAPER_RETENTION", 0),
			RedeemRequestsPerSecond: float64(getEnvAsInt("REDEEM_RPS", 2)),
			RedeemBurst:             getEnvAsInt("REDEEM_BURST", 5),
			InvitationTTL:           getEnvAsDuration("INVITATION_TTL", 24*time.Hour),
		},
		Notification: NotificationConfig{
			Driver:    getEnv("NOTIFY_DRIVER", "smtp"),
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("EMAIL_USER", ""),
			Password:  getEnv("EMAIL_PASS", ""),
			From:      getEnv("EMAIL_FROM", getEnv("EMAIL_USER", "")),
			Workers:   getEnvAsInt("NOTIFY_WORKERS", 4),
			QueueSize: getEnvAsInt("NOTIFY_QUEUE_SIZE", 64),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Env:    getEnv("APP_ENV", "production"),
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Sharing.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("sharing config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Driver != "postgres" && c.Driver != "sqlite" {
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt secret must be at least 32 characters")
	}
	if _, err := c.GetSecretKey(); err != nil {
		return fmt.Errorf("invalid secret key: %w", err)
	}
	return nil
}

// GetSecretKey decodes the base64 AES-256 key used to seal credential secrets.
func (c *SecurityConfig) GetSecretKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("secret key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c *SharingConfig) Validate() error {
	if c.FrontendURL == "" {
		return errors.New("frontend_url is required")
	}
	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		return fmt.Errorf("invalid frontend_url: %w", err)
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	if c.Driver == "smtp" && (c.Host == "" || c.From == "") {
		return errors.New("smtp_host and from are required for the smtp driver")
	}
	return nil
}
