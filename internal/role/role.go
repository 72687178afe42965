package role

import (
	"time"

	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	"github.com/frahmantamala/credential-vault/internal/permission"
)

type Role struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	CompanyID    string                   `json:"company_id,omitempty"`
	IsSystemRole bool                     `json:"is_system_role"`
	CreatedBy    string                   `json:"created_by,omitempty"`
	Permissions  []*permission.Permission `json:"permissions"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func (r *Role) BelongsTo(companyID string) bool {
	return r.CompanyID != "" && r.CompanyID == companyID
}

func (r *Role) PermissionKeys() []string {
	keys := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		keys = append(keys, p.Key)
	}
	return keys
}

func FromDataModel(dm *accessDatamodel.Role) *Role {
	r := &Role{
		ID:           dm.ID,
		Name:         dm.Name,
		IsSystemRole: dm.IsSystemRole,
		Permissions:  make([]*permission.Permission, 0, len(dm.Permissions)),
		CreatedAt:    dm.CreatedAt,
		UpdatedAt:    dm.UpdatedAt,
	}
	if dm.CompanyID != nil {
		r.CompanyID = *dm.CompanyID
	}
	if dm.CreatedBy != nil {
		r.CreatedBy = *dm.CreatedBy
	}
	for i := range dm.Permissions {
		r.Permissions = append(r.Permissions, permission.FromDataModel(&dm.Permissions[i]))
	}
	return r
}
