package postgres

import (
	"context"
	"errors"
	"time"

	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/role"
	"gorm.io/gorm"
)

const rolePermissionsTable = "role_permissions"

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

// Create inserts the role and its join rows; permission rows themselves are never written here.
func (r *RoleRepository) Create(ctx context.Context, dm *accessDatamodel.Role) error {
	return r.db.WithContext(ctx).Omit("Permissions.*").Create(dm).Error
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*accessDatamodel.Role, error) {
	var dm accessDatamodel.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Where("id = ?", id).First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dm, nil
}

func (r *RoleRepository) FindByName(ctx context.Context, companyID, name string) (*accessDatamodel.Role, error) {
	var dm accessDatamodel.Role
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND LOWER(name) = LOWER(?)", companyID, name).
		First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dm, nil
}

func (r *RoleRepository) ListByCompany(ctx context.Context, companyID string) ([]*accessDatamodel.Role, error) {
	var roles []*accessDatamodel.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("company_id = ? AND is_system_role = ?", companyID, false).
		Order("name ASC").
		Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) Rename(ctx context.Context, id, name string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&accessDatamodel.Role{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": at}).Error
}

// ReplacePermissions swaps the join rows in one transaction.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, id string, permissionIDs []string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+rolePermissionsTable+" WHERE role_id = ?", id).Error; err != nil {
			return err
		}
		if len(permissionIDs) > 0 {
			rows := make([]map[string]interface{}, 0, len(permissionIDs))
			for _, pid := range permissionIDs {
				rows = append(rows, map[string]interface{}{"role_id": id, "permission_id": pid})
			}
			if err := tx.Table(rolePermissionsTable).Create(rows).Error; err != nil {
				return err
			}
		}
		return tx.Model(&accessDatamodel.Role{}).Where("id = ?", id).Update("updated_at", at).Error
	})
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+rolePermissionsTable+" WHERE role_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&accessDatamodel.Role{}).Error
	})
}

func (r *RoleRepository) CountAssignedUsers(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("role_id = ?", id).Count(&count).Error
	return count, err
}
