package role

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
)

type CreateRoleDTO struct {
	Name          string   `json:"name"`
	PermissionIDs []string `json:"permissions,omitempty"`
}

func (d *CreateRoleDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(50)
	for i, id := range d.PermissionIDs {
		v.Field(fmt.Sprintf("permissions[%d]", i), id).Required().ID()
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateRoleDTO struct {
	Name *string `json:"name"`
}

func (d *UpdateRoleDTO) Validate() error {
	if d.Name == nil {
		return internal.NewValidationError("At least one field must be provided", internal.ErrCodeEmptyUpdate)
	}
	trimmed := strings.TrimSpace(*d.Name)
	d.Name = &trimmed
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(50)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// AssignPermissionsDTO replaces the role's permission set; an empty list clears it.
type AssignPermissionsDTO struct {
	PermissionIDs []string `json:"permissionIds"`
}

func (d *AssignPermissionsDTO) Validate() error {
	if d.PermissionIDs == nil {
		return internal.NewValidationFieldError("permissionIds", "permissionIds is required", internal.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	for i, id := range d.PermissionIDs {
		v.Field(fmt.Sprintf("permissionIds[%d]", i), id).Required().ID()
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
