package access

import "time"

type Permission struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)"`
	Label     string    `gorm:"column:label;not null"`
	Key       string    `gorm:"column:key;uniqueIndex;not null"`
	Module    string    `gorm:"column:module;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

// Role is company scoped; platform roles (superAdmin, admin) carry no company.
type Role struct {
	ID           string       `gorm:"primaryKey;type:varchar(26)"`
	Name         string       `gorm:"column:name;not null"`
	CompanyID    *string      `gorm:"column:company_id;type:varchar(26);index"`
	IsSystemRole bool         `gorm:"column:is_system_role;not null;default:false"`
	CreatedBy    *string      `gorm:"column:created_by;type:varchar(26)"`
	Permissions  []Permission `gorm:"many2many:role_permissions;joinForeignKey:RoleID;joinReferences:PermissionID"`
	CreatedAt    time.Time    `gorm:"column:created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at"`
}

func (Role) TableName() string {
	return "roles"
}
