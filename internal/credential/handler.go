package credential

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, companyID, ownerID string, dto CreateCredentialDTO) (*Credential, error)
	List(ctx context.Context, query ListQuery) ([]*Credential, error)
	Get(ctx context.Context, requesterID, id string) (*Credential, error)
	Update(ctx context.Context, companyID, id string, dto UpdateCredentialDTO) (*Credential, error)
	Delete(ctx context.Context, companyID, id string) error
	Share(ctx context.Context, companyID, actorID, credentialID string, dto ShareCredentialDTO) (*ShareResult, error)
	ListShares(ctx context.Context, requesterID, credentialID string) ([]ShareRecord, error)
	AccessShared(ctx context.Context, requesterID, token string) (*Credential, error)
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

// CreateCredential handles POST /credentials. Platform callers name the company in the body or
// the query string.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateCredentialDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	companyID, err := p.TenantID(firstNonEmpty(dto.CompanyID, r.URL.Query().Get("company")))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), companyID, p.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "Credential created successfully", created)
}

// ListCredentials handles GET /credentials?search=&userId=
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	query := ListQuery{
		CompanyID: companyID,
		OwnerID:   r.URL.Query().Get("userId"),
		Search:    r.URL.Query().Get("search"),
	}
	credentials, err := h.Service.List(r.Context(), query)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Credentials fetched successfully", credentials)
}

func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	c, err := h.Service.Get(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Credential fetched successfully", c)
}

func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto UpdateCredentialDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), companyID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Credential updated successfully", updated)
}

func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), companyID, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Credential deleted successfully", nil)
}

// ShareCredential handles POST /credentials/{id}/share
func (h *Handler) ShareCredential(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto ShareCredentialDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	companyID, err := p.TenantID(firstNonEmpty(dto.CompanyID, r.URL.Query().Get("company")))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.Share(r.Context(), companyID, p.UserID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, result.Message, result)
}

func (h *Handler) ListShares(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	shares, err := h.Service.ListShares(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Credential shares fetched successfully", shares)
}

// AccessSharedCredential handles GET /credentials/access/{shareToken}
func (h *Handler) AccessSharedCredential(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	c, err := h.Service.AccessShared(r.Context(), p.UserID, chi.URLParam(r, "shareToken"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Shared credential accessed successfully", c)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
