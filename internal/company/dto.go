package company

import (
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
)

type CreateCompanyDTO struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Size     int    `json:"size,omitempty"`
	Industry string `json:"industry,omitempty"`
}

func (d *CreateCompanyDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(3)
	v.Field("size", d.Size).MinInt(0)
	v.Field("industry", d.Industry).OneOf(Industries...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateCompanyDTO struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	Size     *int    `json:"size"`
	Industry *string `json:"industry"`
}

func (d *UpdateCompanyDTO) Validate() error {
	if d.Name == nil && d.Address == nil && d.Size == nil && d.Industry == nil {
		return internal.NewValidationError("At least one field must be provided", internal.ErrCodeEmptyUpdate)
	}
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		d.Name = &trimmed
	}
	v := validation.NewValidator()
	v.Field("name", d.Name).MinLength(3)
	v.Field("industry", d.Industry).OneOf(Industries...)
	if d.Size != nil {
		v.Field("size", *d.Size).MinInt(0)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
