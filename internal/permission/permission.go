package permission

import (
	"strings"
	"time"

	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
)

const (
	CreateRole = "create.role"
	UpdateRole = "update.role"
	DeleteRole = "delete.role"
	GetRole    = "get.role"
	AssignRole = "assign.role"
	CreateUser = "create.user"
	UpdateUser = "update.user"
	DeleteUser = "delete.user"
	GetUser    = "get.user"
	InviteUser = "invite.user"
	CreateDept = "create.dept"
	UpdateDept = "update.dept"
	DeleteDept = "delete.dept"
	GetDept    = "get.dept"
	CreateCred = "create.credit"
	GetCred    = "get.credit"
	UpdateCred = "update.credit"
	DeleteCred = "delete.credit"
	ShareCred  = "share.credit"
	CreateComp = "create.company"
	GetComp    = "get.company"
	UpdateComp = "update.company"
	DeleteComp = "delete.company"
)

type Permission struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Key       string    `json:"key"`
	Module    string    `json:"module"`
	CreatedAt time.Time `json:"created_at"`
}

// Seed is one catalog entry as written at bootstrap.
type Seed struct {
	Label  string
	Key    string
	Module string
}

// Catalog is the bootstrap permission set. It never changes through request traffic.
var Catalog = []Seed{
	{Label: "Create Role", Key: CreateRole, Module: "role"},
	{Label: "Update Role", Key: UpdateRole, Module: "role"},
	{Label: "Delete Role", Key: DeleteRole, Module: "role"},
	{Label: "Get Role", Key: GetRole, Module: "role"},
	{Label: "Assign Role", Key: AssignRole, Module: "role"},

	{Label: "Create User", Key: CreateUser, Module: "user"},
	{Label: "Update User", Key: UpdateUser, Module: "user"},
	{Label: "Delete User", Key: DeleteUser, Module: "user"},
	{Label: "Get User", Key: GetUser, Module: "user"},
	{Label: "Invite User", Key: InviteUser, Module: "user"},

	{Label: "Create Department", Key: CreateDept, Module: "department"},
	{Label: "Update Department", Key: UpdateDept, Module: "department"},
	{Label: "Delete Department", Key: DeleteDept, Module: "department"},
	{Label: "Get Department", Key: GetDept, Module: "department"},

	{Label: "Create Credential", Key: CreateCred, Module: "credential"},
	{Label: "Get Credential", Key: GetCred, Module: "credential"},
	{Label: "Update Credential", Key: UpdateCred, Module: "credential"},
	{Label: "Delete Credential", Key: DeleteCred, Module: "credential"},
	{Label: "Share Credential", Key: ShareCred, Module: "credential"},

	{Label: "Create Company", Key: CreateComp, Module: "company"},
	{Label: "Get Company", Key: GetComp, Module: "company"},
	{Label: "Update Company", Key: UpdateComp, Module: "company"},
	{Label: "Delete Company", Key: DeleteComp, Module: "company"},
}

// NormalizeKey lower-cases and trims a permission key; keys compare case-insensitively.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func ToDataModel(p *Permission) *accessDatamodel.Permission {
	return &accessDatamodel.Permission{
		ID:        p.ID,
		Label:     p.Label,
		Key:       NormalizeKey(p.Key),
		Module:    p.Module,
		CreatedAt: p.CreatedAt,
	}
}

func FromDataModel(p *accessDatamodel.Permission) *Permission {
	return &Permission{
		ID:        p.ID,
		Label:     p.Label,
		Key:       p.Key,
		Module:    p.Module,
		CreatedAt: p.CreatedAt,
	}
}
