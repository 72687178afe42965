package department

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, companyID, actorID string, dto CreateDepartmentDTO) (*Department, error)
	List(ctx context.Context, companyID string) ([]*Department, error)
	Get(ctx context.Context, companyID, id string) (*Department, error)
	Update(ctx context.Context, companyID, id string, dto UpdateDepartmentDTO) (*Department, error)
	Delete(ctx context.Context, companyID, id string) error
	Members(ctx context.Context, companyID, id string) ([]Member, error)
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

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto CreateDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), companyID, p.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "Department created successfully", created)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	departments, err := h.Service.List(r.Context(), companyID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Departments fetched successfully", departments)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	found, err := h.Service.Get(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department fetched successfully", found)
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto UpdateDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), companyID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department updated successfully", updated)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), companyID, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department deleted successfully", nil)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	members, err := h.Service.Members(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department members fetched successfully", members)
}
