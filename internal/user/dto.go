package user

import (
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
)

type CreateUserDTO struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RoleID       string `json:"role"`
	DepartmentID string `json:"department,omitempty"`
}

func (d *CreateUserDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(3)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(6)
	v.Field("role", d.RoleID).Required().ID()
	v.Field("department", d.DepartmentID).ID()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO changes profile and placement. An empty department string detaches the user.
type UpdateUserDTO struct {
	Name         *string `json:"name"`
	RoleID       *string `json:"role"`
	DepartmentID *string `json:"department"`
}

func (d *UpdateUserDTO) Validate() error {
	if d.Name == nil && d.RoleID == nil && d.DepartmentID == nil {
		return internal.NewValidationError("At least one field must be provided", internal.ErrCodeEmptyUpdate)
	}
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		d.Name = &trimmed
	}
	v := validation.NewValidator()
	v.Field("name", d.Name).MinLength(3)
	if d.RoleID != nil {
		v.Field("role", *d.RoleID).Required().ID()
	}
	v.Field("department", d.DepartmentID).ID()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ListFilter narrows the company listing.
type ListFilter struct {
	DepartmentID string
	RoleID       string
}

func (f *ListFilter) Validate() error {
	v := validation.NewValidator()
	v.Field("department", f.DepartmentID).ID()
	v.Field("role", f.RoleID).ID()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type AcceptInvitationDTO struct {
	Token string `json:"token"`
	OTP   string `json:"otp"`
}

func (d *AcceptInvitationDTO) Validate() error {
	d.Token = strings.TrimSpace(d.Token)
	d.OTP = strings.TrimSpace(d.OTP)
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	v.Field("otp", d.OTP).Required().MinLength(6).MaxLength(6)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type CreatePasswordDTO struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (d *CreatePasswordDTO) Validate() error {
	d.Token = strings.TrimSpace(d.Token)
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	v.Field("password", d.Password).Required().MinLength(6)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
