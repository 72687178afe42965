package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/credential-vault/internal/company"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) company.RepositoryAPI {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, c *orgDatamodel.Company) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*orgDatamodel.Company, error) {
	var c orgDatamodel.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) FindByName(ctx context.Context, name string) (*orgDatamodel.Company, error) {
	var c orgDatamodel.Company
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) List(ctx context.Context) ([]*orgDatamodel.Company, error) {
	var companies []*orgDatamodel.Company
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&companies).Error
	return companies, err
}

func (r *CompanyRepository) Update(ctx context.Context, c *orgDatamodel.Company) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CompanyRepository) CountUsers(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("company_id = ?", id).Count(&count).Error
	return count, err
}

func (r *CompanyRepository) DeleteWithDepartments(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", id).Delete(&orgDatamodel.Department{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&orgDatamodel.Company{}).Error
	})
}
