package company

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, actorID string, dto CreateCompanyDTO) (*Company, error)
	List(ctx context.Context, scope string) ([]*Company, error)
	Get(ctx context.Context, scope, id string) (*Company, error)
	Update(ctx context.Context, scope, id string, dto UpdateCompanyDTO) (*Company, error)
	Delete(ctx context.Context, scope, id string) error
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

// Company routes scope by the caller's own company; platform callers see every company.

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateCompanyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), p.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "Company created successfully", created)
}

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	companies, err := h.Service.List(r.Context(), p.CompanyID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Companies fetched successfully", companies)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	found, err := h.Service.Get(r.Context(), p.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Company fetched successfully", found)
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto UpdateCompanyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), p.CompanyID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Company updated successfully", updated)
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), p.CompanyID, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Company and its departments deleted successfully", nil)
}
