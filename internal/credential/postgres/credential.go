package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal/credential"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) credential.RepositoryAPI {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, c *credentialDatamodel.Credential) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*credentialDatamodel.Credential, error) {
	var c credentialDatamodel.Credential
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *CredentialRepository) List(ctx context.Context, query credential.ListQuery) ([]*credentialDatamodel.Credential, error) {
	q := r.db.WithContext(ctx).Where("company_id = ?", query.CompanyID)
	if query.OwnerID != "" {
		q = q.Where("owner_id = ?", query.OwnerID)
	}
	if query.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(query.Search)) + "%"
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(url) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var credentials []*credentialDatamodel.Credential
	err := q.Order("created_at DESC").Find(&credentials).Error
	return credentials, err
}

func (r *CredentialRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&credentialDatamodel.Credential{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokenIDs := tx.Model(&credentialDatamodel.ShareToken{}).Select("id").Where("credential_id = ?", id)
		if err := tx.Where("share_token_id IN (?)", tokenIDs).Delete(&credentialDatamodel.ShareAccess{}).Error; err != nil {
			return err
		}
		if err := tx.Where("credential_id = ?", id).Delete(&credentialDatamodel.ShareToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&credentialDatamodel.Credential{}).Error
	})
}

type ShareRepository struct {
	db *gorm.DB
}

func NewShareRepository(db *gorm.DB) credential.ShareRepositoryAPI {
	return &ShareRepository{db: db}
}

// Create relies on the unique index on the token value; the pool must run with TranslateError.
func (r *ShareRepository) Create(ctx context.Context, t *credentialDatamodel.ShareToken) error {
	if err := r.db.WithContext(ctx).Omit("AccessedBy").Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return credential.ErrDuplicateToken
		}
		return err
	}
	return nil
}

func (r *ShareRepository) FindByToken(ctx context.Context, token string) (*credentialDatamodel.ShareToken, error) {
	var t credentialDatamodel.ShareToken
	if err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *ShareRepository) FindLive(ctx context.Context, credentialID string, target credential.LiveTarget, now time.Time) (*credentialDatamodel.ShareToken, error) {
	q := r.db.WithContext(ctx).
		Where("credential_id = ? AND accessed = ? AND expires_at > ?", credentialID, false, now)
	if target.DepartmentID != "" {
		q = q.Where("department_id = ?", target.DepartmentID)
	} else {
		q = q.Where("recipient_user_id = ?", target.RecipientUserID)
	}

	var t credentialDatamodel.ShareToken
	if err := q.Order("created_at DESC").First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *ShareRepository) ListByCredential(ctx context.Context, credentialID string) ([]*credentialDatamodel.ShareToken, error) {
	var tokens []*credentialDatamodel.ShareToken
	err := r.db.WithContext(ctx).
		Preload("AccessedBy").
		Where("credential_id = ?", credentialID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *ShareRepository) MarkAccessed(ctx context.Context, tokenID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&credentialDatamodel.ShareToken{}).
		Where("id = ? AND accessed = ?", tokenID, false).
		Updates(map[string]interface{}{"accessed": true, "accessed_at": at, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecordDepartmentAccess serialises concurrent redemptions of one token on its row lock, so the
// member count and the accessed flag are always evaluated against every committed access.
func (r *ShareRepository) RecordDepartmentAccess(ctx context.Context, tokenID, userID, departmentID string, at time.Time) (*credential.QuorumOutcome, error) {
	outcome := &credential.QuorumOutcome{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token credentialDatamodel.ShareToken
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", tokenID).First(&token).Error; err != nil {
			return err
		}

		access := &credentialDatamodel.ShareAccess{ShareTokenID: tokenID, UserID: userID, AccessedAt: at}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(access).Error; err != nil {
			return err
		}

		var members, accessed int64
		if err := tx.Model(&userDatamodel.User{}).Where("department_id = ?", departmentID).Count(&members).Error; err != nil {
			return err
		}
		currentMembers := tx.Model(&userDatamodel.User{}).Select("id").Where("department_id = ?", departmentID)
		if err := tx.Model(&credentialDatamodel.ShareAccess{}).
			Where("share_token_id = ? AND user_id IN (?)", tokenID, currentMembers).
			Count(&accessed).Error; err != nil {
			return err
		}

		outcome.Members = int(members)
		outcome.Accessed = int(accessed)
		outcome.Consumed = token.Accessed
		if token.Accessed || members == 0 || accessed < members {
			return nil
		}

		res := tx.Model(&credentialDatamodel.ShareToken{}).
			Where("id = ? AND accessed = ?", tokenID, false).
			Updates(map[string]interface{}{"accessed": true, "accessed_at": at, "updated_at": at})
		if res.Error != nil {
			return res.Error
		}
		outcome.Consumed = true
		outcome.JustConsumed = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (r *ShareRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&credentialDatamodel.ShareToken{}).Select("id").Where("expires_at < ?", before)
		if err := tx.Where("share_token_id IN (?)", expired).Delete(&credentialDatamodel.ShareAccess{}).Error; err != nil {
			return err
		}
		res := tx.Where("expires_at < ?", before).Delete(&credentialDatamodel.ShareToken{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}
