package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/credential-vault/internal/credential"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"gorm.io/gorm"
)

// Directory reads users, departments and companies for the sharing flows.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) credential.DirectoryAPI {
	return &Directory{db: db}
}

func (d *Directory) CompanyExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&orgDatamodel.Company{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (d *Directory) FindUser(ctx context.Context, id string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (d *Directory) FindUsers(ctx context.Context, ids []string) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	if len(ids) == 0 {
		return users, nil
	}
	err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (d *Directory) FindUserByEmail(ctx context.Context, companyID, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND LOWER(email) = LOWER(?)", companyID, email).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (d *Directory) FindDepartment(ctx context.Context, id string) (*orgDatamodel.Department, error) {
	var dept orgDatamodel.Department
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&dept).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dept, nil
}

func (d *Directory) DepartmentMembers(ctx context.Context, departmentID string) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := d.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("name ASC").
		Find(&users).Error
	return users, err
}
