package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/jmoiron/sqlx"
)

const principalQuery = `
SELECT u.id, u.name, u.email, u.company_id, u.department_id, u.role_id,
       r.name AS role_name, r.is_system_role
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
WHERE u.id = ?`

const permissionKeysQuery = `
SELECT p.key
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = ?
ORDER BY p.key`

type principalRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	CompanyID    sql.NullString `db:"company_id"`
	DepartmentID sql.NullString `db:"department_id"`
	RoleID       sql.NullString `db:"role_id"`
	RoleName     sql.NullString `db:"role_name"`
	IsSystemRole sql.NullBool   `db:"is_system_role"`
}

// PrincipalResolver reads the caller's role and permission keys on every request, so a role
// change applies to the next request without re-issuing the session token.
type PrincipalResolver struct {
	db *sqlx.DB
}

func NewPrincipalResolver(db *sqlx.DB) *PrincipalResolver {
	return &PrincipalResolver{db: db}
}

// Resolve returns nil, nil when the user no longer exists.
func (p *PrincipalResolver) Resolve(ctx context.Context, userID string) (*internal.Principal, error) {
	var row principalRow
	if err := p.db.GetContext(ctx, &row, p.db.Rebind(principalQuery), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve principal: %w", err)
	}

	principal := &internal.Principal{
		UserID:       row.ID,
		Name:         row.Name,
		Email:        row.Email,
		CompanyID:    row.CompanyID.String,
		DepartmentID: row.DepartmentID.String,
		RoleID:       row.RoleID.String,
		RoleName:     row.RoleName.String,
		IsSystemRole: row.IsSystemRole.Bool,
		Permissions:  []string{},
	}

	if !row.RoleID.Valid {
		return principal, nil
	}

	var keys []string
	if err := p.db.SelectContext(ctx, &keys, p.db.Rebind(permissionKeysQuery), row.RoleID.String); err != nil {
		return nil, fmt.Errorf("resolve permission keys: %w", err)
	}
	for _, k := range keys {
		principal.Permissions = append(principal.Permissions, strings.ToLower(k))
	}
	return principal, nil
}
