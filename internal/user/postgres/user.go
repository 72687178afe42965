package postgres

import (
	"context"
	"errors"
	"time"

	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, companyID, email string) (*userDatamodel.User, error) {
	return r.first(ctx, "company_id = ? AND LOWER(email) = LOWER(?)", companyID, email)
}

func (r *UserRepository) FindByInvitationToken(ctx context.Context, token string) (*userDatamodel.User, error) {
	return r.first(ctx, "invitation_token = ?", token)
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListByCompany(ctx context.Context, companyID string, filter user.ListFilter) ([]*userDatamodel.User, error) {
	systemRoles := r.db.Model(&accessDatamodel.Role{}).Select("id").Where("is_system_role = ?", true)

	query := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("(role_id IS NULL OR role_id NOT IN (?))", systemRoles)
	if filter.DepartmentID != "" {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.RoleID != "" {
		query = query.Where("role_id = ?", filter.RoleID)
	}

	var users []*userDatamodel.User
	err := query.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *UserRepository) OwnedCredentialIDs(ctx context.Context, ownerID string) ([]string, error) {
	var credentialIDs []string
	err := r.db.WithContext(ctx).
		Model(&credentialDatamodel.Credential{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &credentialIDs).Error
	return credentialIDs, err
}

func (r *UserRepository) LiveShareTokens(ctx context.Context, credentialIDs []string, now time.Time) ([]*credentialDatamodel.ShareToken, error) {
	var tokens []*credentialDatamodel.ShareToken
	if len(credentialIDs) == 0 {
		return tokens, nil
	}
	err := r.db.WithContext(ctx).
		Where("credential_id IN ? AND expires_at > ?", credentialIDs, now).
		Find(&tokens).Error
	return tokens, err
}

func (r *UserRepository) Delete(ctx context.Context, id string, credentialIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(credentialIDs) > 0 {
			tokenIDs := tx.Model(&credentialDatamodel.ShareToken{}).Select("id").Where("credential_id IN ?", credentialIDs)
			if err := tx.Where("share_token_id IN (?)", tokenIDs).Delete(&credentialDatamodel.ShareAccess{}).Error; err != nil {
				return err
			}
			if err := tx.Where("credential_id IN ?", credentialIDs).Delete(&credentialDatamodel.ShareToken{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", credentialIDs).Delete(&credentialDatamodel.Credential{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&userDatamodel.User{}).Error
	})
}
