package department

import (
	"time"

	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
)

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CompanyID string    `json:"company_id"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is the display shape of a user in a department.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func FromDataModel(dm *orgDatamodel.Department) *Department {
	return &Department{
		ID:        dm.ID,
		Name:      dm.Name,
		CompanyID: dm.CompanyID,
		CreatedBy: dm.CreatedBy,
		CreatedAt: dm.CreatedAt,
		UpdatedAt: dm.UpdatedAt,
	}
}

func MemberFromUser(u *userDatamodel.User) Member {
	return Member{ID: u.ID, Name: u.Name, Email: u.Email}
}
