package postgres

import (
	"context"

	"github.com/frahmantamala/credential-vault/internal/auth"
	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// RegisterOwner creates the company, its owner role holding every catalog permission and the owner
// user in one transaction. A case-insensitive company name clash aborts with auth.ErrCompanyNameTaken.
func (r *Repository) RegisterOwner(ctx context.Context, reg *auth.Registration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&orgDatamodel.Company{}).
			Where("LOWER(name) = LOWER(?)", reg.Company.Name).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return auth.ErrCompanyNameTaken
		}

		if err := tx.Create(reg.Company).Error; err != nil {
			return err
		}

		var catalog []accessDatamodel.Permission
		if err := tx.Order("key ASC").Find(&catalog).Error; err != nil {
			return err
		}
		reg.Role.Permissions = catalog
		if err := tx.Omit("Permissions.*").Create(reg.Role).Error; err != nil {
			return err
		}

		return tx.Create(reg.User).Error
	})
}

func (r *Repository) FindUsersByEmail(ctx context.Context, email string) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}
