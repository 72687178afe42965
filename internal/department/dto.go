package department

import (
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
)

type CreateDepartmentDTO struct {
	Name string `json:"name"`
}

func (d *CreateDepartmentDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(3)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateDepartmentDTO struct {
	Name *string `json:"name"`
}

func (d *UpdateDepartmentDTO) Validate() error {
	if d.Name == nil {
		return internal.NewValidationError("At least one field must be provided", internal.ErrCodeEmptyUpdate)
	}
	trimmed := strings.TrimSpace(*d.Name)
	d.Name = &trimmed
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(3)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
