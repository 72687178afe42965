package permission

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]*Permission, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListPermissions handles GET /permissions; ?grouped=true returns the catalog keyed by module.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("grouped") == "true" {
		h.WriteSuccess(w, http.StatusOK, "Permissions fetched successfully", GroupByModule(perms))
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Permissions fetched successfully", perms)
}
