package credential

import (
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
)

// CreateCredentialDTO carries an optional company so platform callers can name the tenant.
type CreateCredentialDTO struct {
	CompanyID string `json:"company,omitempty"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Username  string `json:"userName"`
	Password  string `json:"password"`
}

func (d *CreateCredentialDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.URL = strings.TrimSpace(d.URL)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(3).MaxLength(100)
	v.Field("url", d.URL).Required().URI()
	v.Field("userName", d.Username).Required().MinLength(1)
	v.Field("password", d.Password).Required().MinLength(6)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateCredentialDTO struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	Username *string `json:"userName"`
	Password *string `json:"password"`
}

func (d *UpdateCredentialDTO) Validate() error {
	if d.Name == nil && d.URL == nil && d.Username == nil && d.Password == nil {
		return internal.NewValidationError("At least one field must be provided", internal.ErrCodeEmptyUpdate)
	}
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		d.Name = &trimmed
	}
	if d.URL != nil {
		trimmed := strings.TrimSpace(*d.URL)
		d.URL = &trimmed
	}
	v := validation.NewValidator()
	v.Field("name", d.Name).MinLength(3).MaxLength(100)
	if d.URL != nil {
		v.Field("url", *d.URL).Required().URI()
	}
	v.Field("userName", d.Username).MinLength(1)
	v.Field("password", d.Password).MinLength(6)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ListQuery is the credential listing filter. CompanyID is mandatory.
type ListQuery struct {
	CompanyID string
	OwnerID   string
	Search    string
}

func (q *ListQuery) Validate() error {
	q.Search = strings.TrimSpace(q.Search)
	if q.CompanyID == "" {
		return internal.ErrCompanyRequired
	}
	v := validation.NewValidator()
	v.Field("company", q.CompanyID).ID()
	v.Field("userId", q.OwnerID).ID()
	v.Field("search", q.Search).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ShareCredentialDTO names exactly one target: a recipient email or a department id.
type ShareCredentialDTO struct {
	CompanyID    string `json:"company,omitempty"`
	Email        string `json:"email,omitempty"`
	DepartmentID string `json:"department,omitempty"`
}

func (d *ShareCredentialDTO) Validate() error {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.DepartmentID = strings.TrimSpace(d.DepartmentID)

	if d.Email != "" && d.DepartmentID != "" {
		return internal.NewBadRequestError("Only one of email or departmentId can be provided", internal.ErrCodeShareTargetInvalid)
	}
	if d.Email == "" && d.DepartmentID == "" {
		return internal.NewBadRequestError("Either email or department must be provided", internal.ErrCodeShareTargetInvalid)
	}

	v := validation.NewValidator()
	v.Field("email", d.Email).Email()
	v.Field("department", d.DepartmentID).ID()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
