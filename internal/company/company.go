package company

import (
	"time"

	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
)

// Industries accepted for a company.
var Industries = []string{"Technology", "Finance", "Healthcare", "Education", "Retail", "Manufacturing", "Other"}

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Size      int       `json:"size"`
	Industry  string    `json:"industry"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromDataModel(dm *orgDatamodel.Company) *Company {
	c := &Company{
		ID:        dm.ID,
		Name:      dm.Name,
		Address:   dm.Address,
		Size:      dm.Size,
		Industry:  dm.Industry,
		CreatedAt: dm.CreatedAt,
		UpdatedAt: dm.UpdatedAt,
	}
	if dm.CreatedBy != nil {
		c.CreatedBy = *dm.CreatedBy
	}
	return c
}
