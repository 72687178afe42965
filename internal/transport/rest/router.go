package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/auth"
	"github.com/frahmantamala/credential-vault/internal/company"
	"github.com/frahmantamala/credential-vault/internal/core/metrics"
	"github.com/frahmantamala/credential-vault/internal/credential"
	"github.com/frahmantamala/credential-vault/internal/department"
	"github.com/frahmantamala/credential-vault/internal/permission"
	"github.com/frahmantamala/credential-vault/internal/role"
	"github.com/frahmantamala/credential-vault/internal/transport/middleware"
	"github.com/frahmantamala/credential-vault/internal/transport/swagger"
	"github.com/frahmantamala/credential-vault/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Auth       *auth.Handler
	Permission *permission.Handler
	Role       *role.Handler
	Department *department.Handler
	User       *user.Handler
	Company    *company.Handler
	Credential *credential.Handler
}

// Options carries the cross-cutting pieces. Document, Metrics and RedeemLimiter are optional.
type Options struct {
	DB             *sql.DB
	DBDriver       string
	RBAC           *auth.RBACAuthorization
	AllowedOrigins string
	Document       *swagger.Document
	Metrics        *metrics.Metrics
	MetricsPath    string
	RedeemLimiter  *middleware.RateLimiter
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options) {
	healthHandler := NewHealthHandler(opts.DB, opts.DBDriver)
	rbac := opts.RBAC

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Instrument)
		router.Handle(opts.MetricsPath, opts.Metrics.Handler())
	}

	if opts.Document != nil {
		router.Handle(swagger.DocumentPath, opts.Document)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", h.Auth.Register)
			sr.Post("/login", h.Auth.Login)
		})

		// Invitation steps authenticate with the invitation token itself.
		r.Post("/users/accept-invitation", h.User.AcceptInvitation)
		r.Post("/users/create-password", h.User.CreatePassword)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/auth/me", h.Auth.Me)
			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Get("/permissions", h.Permission.ListPermissions)

			pr.Route("/roles", func(rr chi.Router) {
				rr.Get("/", h.Role.ListRoles)
				rr.With(rbac.Middleware(permission.CreateRole)).Post("/", h.Role.CreateRole)
				rr.With(rbac.Middleware(permission.GetRole)).Get("/{id}", h.Role.GetRole)
				rr.With(rbac.Middleware(permission.UpdateRole)).Put("/{id}", h.Role.UpdateRole)
				rr.With(rbac.Middleware(permission.DeleteRole)).Delete("/{id}", h.Role.DeleteRole)
				rr.With(rbac.Middleware(permission.AssignRole)).Post("/assign-permission/{id}", h.Role.AssignPermissions)
			})

			pr.Route("/departments", func(dr chi.Router) {
				dr.With(rbac.Middleware(permission.CreateDept)).Post("/", h.Department.CreateDepartment)
				dr.With(rbac.Middleware(permission.GetDept)).Get("/", h.Department.ListDepartments)
				dr.With(rbac.Middleware(permission.GetDept)).Get("/{id}", h.Department.GetDepartment)
				dr.With(rbac.Middleware(permission.GetDept)).Get("/{id}/members", h.Department.ListMembers)
				dr.With(rbac.Middleware(permission.UpdateDept)).Put("/{id}", h.Department.UpdateDepartment)
				dr.With(rbac.Middleware(permission.DeleteDept)).Delete("/{id}", h.Department.DeleteDepartment)
			})

			pr.Route("/users", func(ur chi.Router) {
				ur.With(rbac.Middleware(permission.CreateUser)).Post("/", h.User.CreateUser)
				ur.With(rbac.Middleware(permission.GetUser)).Get("/", h.User.ListUsers)
				ur.With(rbac.Middleware(permission.GetUser)).Get("/{id}", h.User.GetUser)
				ur.With(rbac.Middleware(permission.UpdateUser)).Put("/{id}", h.User.UpdateUser)
				ur.With(rbac.Middleware(permission.DeleteUser)).Delete("/{id}", h.User.DeleteUser)
				ur.With(rbac.Middleware(permission.InviteUser)).Post("/invite/{id}", h.User.InviteUser)
			})

			pr.Route("/companies", func(cr chi.Router) {
				platform := []string{permission.AdminRole, permission.SuperAdminRole}
				cr.With(rbac.RequireRoles(permission.CreateComp, platform...)).Post("/", h.Company.CreateCompany)
				cr.With(rbac.RequireRoles(permission.GetComp, platform...)).Get("/", h.Company.ListCompanies)
				cr.With(rbac.RequireRoles(permission.GetComp, platform...)).Get("/{id}", h.Company.GetCompany)
				cr.With(rbac.RequireRoles(permission.UpdateComp, platform...)).Put("/{id}", h.Company.UpdateCompany)
				cr.With(rbac.RequireRoles(permission.DeleteComp, platform...)).Delete("/{id}", h.Company.DeleteCompany)
			})

			pr.Route("/credentials", func(cr chi.Router) {
				cr.With(rbac.Middleware(permission.CreateCred)).Post("/", h.Credential.CreateCredential)
				cr.With(rbac.Middleware(permission.GetCred)).Get("/", h.Credential.ListCredentials)
				cr.With(rbac.Middleware(permission.GetCred)).Get("/{id}", h.Credential.GetCredential)
				cr.With(rbac.Middleware(permission.GetCred)).Get("/{id}/shares", h.Credential.ListShares)
				cr.With(rbac.Middleware(permission.UpdateCred)).Put("/{id}", h.Credential.UpdateCredential)
				cr.With(rbac.Middleware(permission.DeleteCred)).Delete("/{id}", h.Credential.DeleteCredential)
				cr.With(rbac.Middleware(permission.ShareCred)).Post("/{id}/share", h.Credential.ShareCredential)

				// Any authenticated recipient may redeem; the token is the capability.
				redeem := http.HandlerFunc(h.Credential.AccessSharedCredential)
				if opts.RedeemLimiter != nil {
					cr.With(opts.RedeemLimiter.Middleware).Get("/access/{shareToken}", redeem)
				} else {
					cr.Get("/access/{shareToken}", redeem)
				}
			})
		})
	})
}
