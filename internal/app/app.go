// Package app wires repositories, services, handlers and background jobs into one HTTP application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	authPostgres "github.com/frahmantamala/credential-vault/internal/auth/postgres"
	"github.com/frahmantamala/credential-vault/internal/company"
	companyPostgres "github.com/frahmantamala/credential-vault/internal/company/postgres"
	"github.com/frahmantamala/credential-vault/internal/core/database"
	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/internal/core/metrics"
	"github.com/frahmantamala/credential-vault/internal/credential"
	credentialPostgres "github.com/frahmantamala/credential-vault/internal/credential/postgres"
	"github.com/frahmantamala/credential-vault/internal/department"
	departmentPostgres "github.com/frahmantamala/credential-vault/internal/department/postgres"
	"github.com/frahmantamala/credential-vault/internal/notification"
	"github.com/frahmantamala/credential-vault/internal/permission"
	permissionPostgres "github.com/frahmantamala/credential-vault/internal/permission/postgres"
	"github.com/frahmantamala/credential-vault/internal/role"
	rolePostgres "github.com/frahmantamala/credential-vault/internal/role/postgres"
	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/frahmantamala/credential-vault/internal/transport/middleware"
	"github.com/frahmantamala/credential-vault/internal/transport/rest"
	"github.com/frahmantamala/credential-vault/internal/transport/swagger"
	"github.com/frahmantamala/credential-vault/internal/user"
	userPostgres "github.com/frahmantamala/credential-vault/internal/user/postgres"
	"github.com/go-chi/chi"
	"gorm.io/gorm"
)

// Options lets callers swap the outbound mail sender; nil builds one from config.
type Options struct {
	Sender notification.Sender
}

type App struct {
	Config      *internal.Config
	DB          *gorm.DB
	Router      *chi.Mux
	Bus         *events.EventBus
	Metrics     *metrics.Metrics
	Reaper      *credential.Reaper
	Dispatcher  *notification.Dispatcher
	Permissions *permission.Service
	Logger      *slog.Logger
}

// New builds the application on an already migrated database. It seeds the permission catalog and
// the system role grants on every start.
func New(ctx context.Context, cfg *internal.Config, db *gorm.DB, log *slog.Logger, opts Options) (*App, error) {
	secretKey, err := cfg.Security.GetSecretKey()
	if err != nil {
		return nil, err
	}
	sealer, err := credential.NewAESSealer(secretKey)
	if err != nil {
		return nil, err
	}
	sqlxDB, err := database.SQLX(db, cfg.Database.Driver)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pool for sqlx: %w", err)
	}

	bus := events.NewEventBus(log)
	events.RegisterAuditLog(bus, log)
	m := metrics.New()
	m.Subscribe(bus)

	sender := opts.Sender
	if sender == nil {
		sender = notification.NewSender(cfg.Notification, log)
	}
	mailer := notification.NewMailer(sender, cfg.Sharing.FrontendURL)

	permissions := permission.NewService(permissionPostgres.NewPermissionRepository(db), log)
	if _, err := permissions.Seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed permission catalog: %w", err)
	}
	if _, err := permissions.SeedSystemRoles(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed system roles: %w", err)
	}

	hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
	authSvc := auth.NewService(
		authPostgres.NewRepository(db),
		authPostgres.NewPrincipalResolver(sqlxDB),
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.SessionTTL),
		hasher,
		log,
	)

	companies := company.NewService(companyPostgres.NewCompanyRepository(db), log)
	roles := role.NewService(rolePostgres.NewRoleRepository(db), permissions, log)
	departments := department.NewService(departmentPostgres.NewDepartmentRepository(db), companies, log)
	users := user.NewService(userPostgres.NewUserRepository(db), user.Dependencies{
		Roles:         roles,
		Departments:   departments,
		Companies:     companies,
		Hasher:        hasher,
		Mailer:        mailer,
		InvitationTTL: cfg.Sharing.InvitationTTL,
	}, log)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	dispatcher := notification.NewDispatcher(mailer, notification.DispatcherConfig{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
	}, log)
	shares := credentialPostgres.NewShareRepository(db)
	credentials := credential.NewService(credentialPostgres.NewCredentialRepository(db), credential.Dependencies{
		Shares:    shares,
		Directory: credentialPostgres.NewDirectory(db),
		Sealer:    sealer,
		Mailer:    dispatcher,
		Events:    bus,
		Policy: credential.SharePolicy{
			TokenTTL:                    cfg.Sharing.TokenTTL,
			FailOnEmailNotifyError:      cfg.Sharing.FailOnEmailNotifyError,
			FailOnDepartmentNotifyError: cfg.Sharing.FailOnDeptNotifyError,
		},
	}, log)

	base := transport.NewBaseHandler(log)
	handlers := rest.Handlers{
		Auth:       auth.NewHandler(authSvc),
		Permission: permission.NewHandler(base, permissions),
		Role:       role.NewHandler(base, roles),
		Department: department.NewHandler(base, departments),
		User:       user.NewHandler(base, users),
		Company:    company.NewHandler(base, companies),
		Credential: credential.NewHandler(base, credentials),
	}

	routeOpts := rest.Options{
		DB:             sqlDB,
		DBDriver:       cfg.Database.Driver,
		RBAC:           auth.NewRBACAuthorization(auth.NewAuthorizer(cfg.Security.LegacyRoleAuth), log),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RedeemLimiter:  middleware.NewRateLimiter(cfg.Sharing.RedeemRequestsPerSecond, cfg.Sharing.RedeemBurst, base),
		Logger:         log,
	}
	if cfg.Observability.Metrics.Enabled {
		routeOpts.Metrics = m
		routeOpts.MetricsPath = cfg.Observability.Metrics.Path
	}
	if cfg.Server.OpenAPIPath != "" {
		doc, err := swagger.Load(ctx, cfg.Server.OpenAPIPath)
		if err != nil {
			log.Warn("openapi document unavailable, docs routes disabled", "path", cfg.Server.OpenAPIPath, "error", err)
		} else {
			routeOpts.Document = doc
		}
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, handlers, routeOpts)

	return &App{
		Config:      cfg,
		DB:          db,
		Router:      router,
		Bus:         bus,
		Metrics:     m,
		Reaper:      credential.NewReaper(shares, cfg.Sharing.ReaperRetention, m, log),
		Dispatcher:  dispatcher,
		Permissions: permissions,
		Logger:      log,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.Router
}

// Shutdown stops the reaper and the mail workers, then waits for queued event handlers.
func (a *App) Shutdown(ctx context.Context) error {
	a.Reaper.Stop(ctx)
	a.Dispatcher.Shutdown()
	return a.Bus.Drain(ctx)
}
