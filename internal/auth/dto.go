package auth

import (
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal/company"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
// CompanyID disambiguates an email registered in more than one company.
type LoginDTO struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	CompanyID string `json:"company_id,omitempty"`
}

func (d *LoginDTO) Validate() error {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	v.Field("company_id", d.CompanyID).ID()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RegisterDTO struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	CompanyName     string `json:"companyName"`
	CompanyAddress  string `json:"companyAddress"`
	CompanySize     int    `json:"companySize"`
	CompanyIndustry string `json:"companyIndustry"`
}

func (d *RegisterDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.CompanyAddress = strings.TrimSpace(d.CompanyAddress)

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(3)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(6)
	v.Field("companyName", d.CompanyName).Required().MinLength(3)
	v.Field("companyAddress", d.CompanyAddress).Required()
	v.Field("companySize", d.CompanySize).MinInt(1)
	v.Field("companyIndustry", d.CompanyIndustry).Required().OneOf(company.Industries...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type AccountView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name,omitempty"`
	RoleID      string `json:"role_id"`
	RoleName    string `json:"role,omitempty"`
}

type SessionResponse struct {
	User      AccountView `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}
