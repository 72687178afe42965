package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CompanyID    string    `json:"company_id,omitempty"`
	DepartmentID string    `json:"department_id,omitempty"`
	RoleID       string    `json:"role_id,omitempty"`
	IsAccepted   bool      `json:"is_accepted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BelongsTo reports whether the user is a member of the company.
func (u *User) BelongsTo(companyID string) bool {
	return u.CompanyID != "" && u.CompanyID == companyID
}

// InvitationSent is returned to the inviter; the OTP and token only travel by email.
type InvitationSent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		CompanyID:    deref(u.CompanyID),
		DepartmentID: deref(u.DepartmentID),
		RoleID:       deref(u.RoleID),
		IsAccepted:   u.IsAccepted,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
