package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer Authorizer
	logger     *slog.Logger
}

func NewRBACAuthorization(authorizer Authorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
		logger:      logger,
	}
}

// Check runs the gate in front of next: 401 without a principal, 403 when denied.
func (ra *RBACAuthorization) Check(next http.HandlerFunc, req Requirement) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := internal.PrincipalFromContext(r.Context())
		if !ok {
			ra.logger.WarnContext(r.Context(), "authorization check failed: principal not found in context")
			ra.HandleServiceError(w, r, internal.ErrUnauthenticated)
			return
		}

		if !ra.authorizer.Authorize(principal, req) {
			ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"user_id", principal.UserID,
				"authorizer", ra.authorizer.Name(),
				"required_permission", req.Permission,
				"accepted_roles", req.Roles,
				"role", principal.RoleName)
			ra.HandleServiceError(w, r, internal.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Middleware(permission string) func(http.Handler) http.Handler {
	return ra.Require(Requirement{Permission: permission})
}

// RequireRoles accepts the listed role names under the legacy gate and the permission otherwise.
func (ra *RBACAuthorization) RequireRoles(permission string, roles ...string) func(http.Handler) http.Handler {
	return ra.Require(Requirement{Permission: permission, Roles: roles})
}

func (ra *RBACAuthorization) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, req)
	}
}
