package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, companyID string, dto CreateUserDTO) (*User, error)
	List(ctx context.Context, companyID string, filter ListFilter) ([]*User, error)
	Get(ctx context.Context, companyID, id string) (*User, error)
	Profile(ctx context.Context, userID string) (*User, error)
	Update(ctx context.Context, companyID, id string, dto UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, companyID, id string) error
	Invite(ctx context.Context, companyID, id string) (*InvitationSent, error)
	AcceptInvitation(ctx context.Context, dto AcceptInvitationDTO) (*User, error)
	CreatePassword(ctx context.Context, dto CreatePasswordDTO) error
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

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Principal(w, r)
	if !ok {
		return
	}

	u, err := h.Service.Profile(r.Context(), p.UserID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Current user fetched successfully", u)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto CreateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), companyID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "User created successfully", created)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	filter := ListFilter{
		DepartmentID: r.URL.Query().Get("department"),
		RoleID:       r.URL.Query().Get("role"),
	}
	users, err := h.Service.List(r.Context(), companyID, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Users fetched successfully", users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	u, err := h.Service.Get(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "User fetched successfully", u)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), companyID, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "User updated successfully", updated)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), companyID, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) InviteUser(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.Tenant(w, r)
	if !ok {
		return
	}

	sent, err := h.Service.Invite(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Invitation sent successfully", sent)
}

// AcceptInvitation and CreatePassword are public: the emailed token is the credential.
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var dto AcceptInvitationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	u, err := h.Service.AcceptInvitation(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Invitation accepted successfully", u)
}

func (h *Handler) CreatePassword(w http.ResponseWriter, r *http.Request) {
	var dto CreatePasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.CreatePassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Password created successfully", nil)
}
