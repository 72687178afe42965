package credential

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/notification"
)

type RepositoryAPI interface {
	Create(ctx context.Context, c *credentialDatamodel.Credential) error
	FindByID(ctx context.Context, id string) (*credentialDatamodel.Credential, error)
	List(ctx context.Context, query ListQuery) ([]*credentialDatamodel.Credential, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Delete removes the credential together with its share tokens and access rows.
	Delete(ctx context.Context, id string) error
}

// LiveTarget selects the live token held by one recipient or one department.
type LiveTarget struct {
	RecipientUserID string
	DepartmentID    string
}

type ShareRepositoryAPI interface {
	Create(ctx context.Context, t *credentialDatamodel.ShareToken) error
	FindByToken(ctx context.Context, token string) (*credentialDatamodel.ShareToken, error)
	// FindLive returns an unexpired, unconsumed token of the credential for the target.
	FindLive(ctx context.Context, credentialID string, target LiveTarget, now time.Time) (*credentialDatamodel.ShareToken, error)
	ListByCredential(ctx context.Context, credentialID string) ([]*credentialDatamodel.ShareToken, error)
	// MarkAccessed flips an individual token once; false means it was already consumed.
	MarkAccessed(ctx context.Context, tokenID string, at time.Time) (bool, error)
	// RecordDepartmentAccess appends the member if absent and consumes the token when every
	// current member of the department has redeemed it. It runs under a row lock on the token.
	RecordDepartmentAccess(ctx context.Context, tokenID, userID, departmentID string, at time.Time) (*QuorumOutcome, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// DirectoryAPI is the read side of users, departments and companies that sharing depends on.
type DirectoryAPI interface {
	CompanyExists(ctx context.Context, id string) (bool, error)
	FindUser(ctx context.Context, id string) (*userDatamodel.User, error)
	FindUsers(ctx context.Context, ids []string) ([]*userDatamodel.User, error)
	FindUserByEmail(ctx context.Context, companyID, email string) (*userDatamodel.User, error)
	FindDepartment(ctx context.Context, id string) (*orgDatamodel.Department, error)
	DepartmentMembers(ctx context.Context, departmentID string) ([]*userDatamodel.User, error)
}

type ShareMailer interface {
	SendShareLink(ctx context.Context, data notification.ShareLink) error
}

// BatchShareMailer is used for department fan-out when the mailer provides it.
type BatchShareMailer interface {
	SendShareLinks(ctx context.Context, links []notification.ShareLink) []error
}

// SharePolicy decides token lifetime and which notification failures abort a share.
type SharePolicy struct {
	TokenTTL                    time.Duration
	FailOnEmailNotifyError      bool
	FailOnDepartmentNotifyError bool
}

func DefaultSharePolicy() SharePolicy {
	return SharePolicy{
		TokenTTL:               24 * time.Hour,
		FailOnEmailNotifyError: true,
	}
}

type Dependencies struct {
	Shares    ShareRepositoryAPI
	Directory DirectoryAPI
	Sealer    SecretSealer
	Mailer    ShareMailer
	Events    events.Publisher
	Policy    SharePolicy
}

type Service struct {
	repo      RepositoryAPI
	shares    ShareRepositoryAPI
	directory DirectoryAPI
	sealer    SecretSealer
	mailer    ShareMailer
	events    events.Publisher
	policy    SharePolicy
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, deps Dependencies, logger *slog.Logger) *Service {
	policy := deps.Policy
	if policy.TokenTTL <= 0 {
		policy.TokenTTL = 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		shares:    deps.Shares,
		directory: deps.Directory,
		sealer:    deps.Sealer,
		mailer:    deps.Mailer,
		events:    deps.Events,
		policy:    policy,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var (
	errCredentialNotFound = internal.NewNotFoundError("Credential not found", internal.ErrCodeCredentialNotFound)
	errNotOwner           = internal.NewForbiddenError("Unauthorized access to this credential", internal.ErrCodeUnauthorizedAccess)
	errCompanyNotFound    = internal.NewNotFoundError("Company not found", internal.ErrCodeCompanyNotFound)
)

func (s *Service) Create(ctx context.Context, companyID, ownerID string, dto CreateCredentialDTO) (*Credential, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if companyID == "" {
		return nil, internal.ErrCompanyRequired
	}

	exists, err := s.directory.CompanyExists(ctx, companyID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check company", err)
	}
	if !exists {
		return nil, errCompanyNotFound
	}

	sealed, err := s.sealer.Seal(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to seal secret", err)
	}

	now := s.now()
	dm := &credentialDatamodel.Credential{
		ID:           ids.New(),
		CompanyID:    companyID,
		OwnerID:      ownerID,
		Name:         dto.Name,
		URL:          dto.URL,
		Username:     dto.Username,
		SealedSecret: sealed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, dm); err != nil {
		s.logger.Error("failed to create credential", "error", err, "company_id", companyID)
		return nil, internal.NewInternalError("failed to create credential", err)
	}

	s.logger.Info("credential created", "credential_id", dm.ID, "company_id", companyID, "owner_id", ownerID)
	return FromDataModel(dm), nil
}

// List returns company credentials newest first, without secrets.
func (s *Service) List(ctx context.Context, query ListQuery) ([]*Credential, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		s.logger.Error("failed to list credentials", "error", err, "company_id", query.CompanyID)
		return nil, internal.NewInternalError("failed to list credentials", err)
	}

	ownerIDs := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if !seen[row.OwnerID] {
			seen[row.OwnerID] = true
			ownerIDs = append(ownerIDs, row.OwnerID)
		}
	}
	owners := make(map[string]*Owner, len(ownerIDs))
	if len(ownerIDs) > 0 {
		users, err := s.directory.FindUsers(ctx, ownerIDs)
		if err != nil {
			return nil, internal.NewInternalError("failed to load credential owners", err)
		}
		for _, u := range users {
			owners[u.ID] = OwnerFromUser(u)
		}
	}

	out := make([]*Credential, 0, len(rows))
	for _, row := range rows {
		c := FromDataModel(row)
		c.Owner = owners[row.OwnerID]
		out = append(out, c)
	}
	return out, nil
}

// Get is the owner's own read, secret included.
func (s *Service) Get(ctx context.Context, requesterID, id string) (*Credential, error) {
	dm, err := s.owned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	return s.reveal(ctx, dm)
}

func (s *Service) Update(ctx context.Context, companyID, id string, dto UpdateCredentialDTO) (*Credential, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	dm, err := s.inCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]interface{}{"updated_at": now}
	if dto.Name != nil {
		fields["name"] = *dto.Name
		dm.Name = *dto.Name
	}
	if dto.URL != nil {
		fields["url"] = *dto.URL
		dm.URL = *dto.URL
	}
	if dto.Username != nil {
		fields["username"] = *dto.Username
		dm.Username = *dto.Username
	}
	if dto.Password != nil {
		sealed, err := s.sealer.Seal(*dto.Password)
		if err != nil {
			return nil, internal.NewInternalError("failed to seal secret", err)
		}
		fields["sealed_secret"] = sealed
	}

	if err := s.repo.Update(ctx, dm.ID, fields); err != nil {
		s.logger.Error("failed to update credential", "error", err, "credential_id", dm.ID)
		return nil, internal.NewInternalError("failed to update credential", err)
	}
	dm.UpdatedAt = now
	return FromDataModel(dm), nil
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	dm, err := s.inCompany(ctx, companyID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, dm.ID); err != nil {
		s.logger.Error("failed to delete credential", "error", err, "credential_id", dm.ID)
		return internal.NewInternalError("failed to delete credential", err)
	}
	s.logger.Info("credential deleted", "credential_id", dm.ID, "company_id", companyID)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*credentialDatamodel.Credential, error) {
	if err := validation.ValidateID("id", id); err != nil {
		return nil, err
	}
	dm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to fetch credential", err)
	}
	if dm == nil {
		return nil, errCredentialNotFound
	}
	return dm, nil
}

func (s *Service) owned(ctx context.Context, requesterID, id string) (*credentialDatamodel.Credential, error) {
	dm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if dm.OwnerID != requesterID {
		return nil, errNotOwner
	}
	return dm, nil
}

func (s *Service) inCompany(ctx context.Context, companyID, id string) (*credentialDatamodel.Credential, error) {
	dm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if dm.CompanyID != companyID {
		return nil, errCredentialNotFound
	}
	return dm, nil
}

// reveal opens the secret and attaches the owner.
func (s *Service) reveal(ctx context.Context, dm *credentialDatamodel.Credential) (*Credential, error) {
	secret, err := s.sealer.Open(dm.SealedSecret)
	if err != nil {
		s.logger.Error("failed to open credential secret", "error", err, "credential_id", dm.ID)
		return nil, internal.NewInternalError("failed to open credential", err)
	}
	owner, err := s.directory.FindUser(ctx, dm.OwnerID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load credential owner", err)
	}

	c := FromDataModel(dm)
	c.Password = secret
	c.Owner = OwnerFromUser(owner)
	return c, nil
}
