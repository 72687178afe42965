package postgres

import (
	"context"
	"errors"

	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	"github.com/frahmantamala/credential-vault/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.RepositoryAPI {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) List(ctx context.Context) ([]*accessDatamodel.Permission, error) {
	var perms []*accessDatamodel.Permission
	err := r.db.WithContext(ctx).Order("module ASC, key ASC").Find(&perms).Error
	return perms, err
}

func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []string) ([]*accessDatamodel.Permission, error) {
	var perms []*accessDatamodel.Permission
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

func (r *PermissionRepository) FindByKey(ctx context.Context, key string) (*accessDatamodel.Permission, error) {
	var p accessDatamodel.Permission
	err := r.db.WithContext(ctx).Where("LOWER(key) = LOWER(?)", key).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PermissionRepository) Create(ctx context.Context, p *accessDatamodel.Permission) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// EnsurePlatformRole inserts role unless a company-less role with the same name exists.
func (r *PermissionRepository) EnsurePlatformRole(ctx context.Context, role *accessDatamodel.Role) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&accessDatamodel.Role{}).
		Where("LOWER(name) = LOWER(?) AND company_id IS NULL", role.Name).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	return true, r.db.WithContext(ctx).Omit("Permissions").Create(role).Error
}

type rolePermission struct {
	RoleID       string `gorm:"column:role_id"`
	PermissionID string `gorm:"column:permission_id"`
}

func (rolePermission) TableName() string {
	return "role_permissions"
}

// GrantCatalogToSystemRoles adds every missing (system role, permission) pair.
func (r *PermissionRepository) GrantCatalogToSystemRoles(ctx context.Context) (int, error) {
	var granted int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roleIDs, permissionIDs []string
		if err := tx.Model(&accessDatamodel.Role{}).Where("is_system_role = ?", true).Pluck("id", &roleIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&accessDatamodel.Permission{}).Pluck("id", &permissionIDs).Error; err != nil {
			return err
		}
		if len(roleIDs) == 0 || len(permissionIDs) == 0 {
			return nil
		}

		pairs := make([]rolePermission, 0, len(roleIDs)*len(permissionIDs))
		for _, roleID := range roleIDs {
			for _, permissionID := range permissionIDs {
				pairs = append(pairs, rolePermission{RoleID: roleID, PermissionID: permissionID})
			}
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(pairs, 200)
		if res.Error != nil {
			return res.Error
		}
		granted = int(res.RowsAffected)
		return nil
	})
	return granted, err
}
