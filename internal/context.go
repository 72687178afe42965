package internal

import (
	"context"
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal/core/ids"
)

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

// Principal is the authenticated caller resolved once per request.
// Permissions hold lower-cased permission keys joined through the caller's role.
type Principal struct {
	UserID       string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	CompanyID    string   `json:"company_id,omitempty"`
	DepartmentID string   `json:"department_id,omitempty"`
	RoleID       string   `json:"role_id,omitempty"`
	RoleName     string   `json:"role,omitempty"`
	IsSystemRole bool     `json:"is_system_role"`
	Permissions  []string `json:"permissions"`
}

func (p *Principal) HasPermission(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, perm := range p.Permissions {
		if strings.ToLower(perm) == key {
			return true
		}
	}
	return false
}

// TenantID scopes a request to the caller's company. Platform principals without a company must
// name one explicitly.
func (p *Principal) TenantID(requested string) (string, error) {
	if p.CompanyID != "" {
		return p.CompanyID, nil
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", ErrCompanyRequired
	}
	if !ids.Valid(requested) {
		return "", NewValidationFieldError("company", "company is not a valid id", ErrCodeInvalidID)
	}
	return requested, nil
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextPrincipalKey).(*Principal)
	return p, ok && p != nil
}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
