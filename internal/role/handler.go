package role

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, companyID, actorID string, dto CreateRoleDTO) (*Role, error)
	List(ctx context.Context, companyID string) ([]*Role, error)
	Get(ctx context.Context, companyID, id string) (*Role, error)
	Update(ctx context.Context, companyID, id string, dto UpdateRoleDTO) (*Role, error)
	Delete(ctx context.Context, companyID, id string) error
	AssignPermissions(ctx context.Context, companyID, id string, dto AssignPermissionsDTO) (*Role, error)
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

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto CreateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), companyID, p.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "Role created successfully", created)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	roles, err := h.Service.List(r.Context(), companyID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Roles fetched successfully", roles)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	found, err := h.Service.Get(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Role fetched successfully", found)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto UpdateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), companyID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Role updated successfully", updated)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), companyID, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Role deleted successfully", nil)
}

func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto AssignPermissionsDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.AssignPermissions(r.Context(), companyID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Permissions assigned successfully", updated)
}
