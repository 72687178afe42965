package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/frahmantamala/credential-vault/pkg/logger"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*SessionResponse, error)
	Login(ctx context.Context, dto LoginDTO) (*SessionResponse, error)
	Authenticate(ctx context.Context, bearer string) (*internal.Principal, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	session, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusCreated, "Registration successful", session)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	session, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Login successful", session)
}

// Me echoes the resolved principal with its permission keys.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.Principal(w, r)
	if !ok {
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Current user", principal)
}

// AuthMiddleware resolves the bearer token into a principal and stores it on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleServiceError(w, r, internal.ErrUnauthenticated)
			return
		}

		principal, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		ctx := internal.ContextWithPrincipal(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.UserID, "company_id", principal.CompanyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
