package postgres

import (
	"context"
	"errors"
	"time"

	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/department"
	"gorm.io/gorm"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.RepositoryAPI {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, d *orgDatamodel.Department) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*orgDatamodel.Department, error) {
	var d orgDatamodel.Department
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) FindByName(ctx context.Context, companyID, name string) (*orgDatamodel.Department, error) {
	var d orgDatamodel.Department
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND LOWER(name) = LOWER(?)", companyID, name).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) ListByCompany(ctx context.Context, companyID string) ([]*orgDatamodel.Department, error) {
	var departments []*orgDatamodel.Department
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&departments).Error
	return departments, err
}

func (r *DepartmentRepository) Rename(ctx context.Context, id, name string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&orgDatamodel.Department{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": at}).Error
}

func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&userDatamodel.User{}).
			Where("department_id = ?", id).
			Update("department_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&orgDatamodel.Department{}).Error
	})
}

func (r *DepartmentRepository) Members(ctx context.Context, id string) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("department_id = ?", id).
		Order("name ASC").
		Find(&users).Error
	return users, err
}
