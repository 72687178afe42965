package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	"github.com/frahmantamala/credential-vault/internal/company"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/notification"
)

type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	FindByID(ctx context.Context, id string) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, companyID, email string) (*userDatamodel.User, error)
	FindByInvitationToken(ctx context.Context, token string) (*userDatamodel.User, error)
	// ListByCompany never returns holders of system roles.
	ListByCompany(ctx context.Context, companyID string, filter ListFilter) ([]*userDatamodel.User, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error

	OwnedCredentialIDs(ctx context.Context, ownerID string) ([]string, error)
	LiveShareTokens(ctx context.Context, credentialIDs []string, now time.Time) ([]*credentialDatamodel.ShareToken, error)
	// Delete removes the share tokens and credentials listed, then the user, in one transaction.
	Delete(ctx context.Context, id string, credentialIDs []string) error
}

type RoleChecker interface {
	IsAssignable(ctx context.Context, companyID, id string) (bool, error)
}

type DepartmentChecker interface {
	Exists(ctx context.Context, companyID, id string) (bool, error)
}

type CompanyReader interface {
	Get(ctx context.Context, scope, id string) (*company.Company, error)
}

type InvitationMailer interface {
	SendInvitation(ctx context.Context, data notification.Invitation) error
}

type Service struct {
	repo          RepositoryAPI
	roles         RoleChecker
	departments   DepartmentChecker
	companies     CompanyReader
	hasher        auth.PasswordHasher
	mailer        InvitationMailer
	invitationTTL time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

type Dependencies struct {
	Roles         RoleChecker
	Departments   DepartmentChecker
	Companies     CompanyReader
	Hasher        auth.PasswordHasher
	Mailer        InvitationMailer
	InvitationTTL time.Duration
}

func NewService(repo RepositoryAPI, deps Dependencies, logger *slog.Logger) *Service {
	ttl := deps.InvitationTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		repo:          repo,
		roles:         deps.Roles,
		departments:   deps.Departments,
		companies:     deps.Companies,
		hasher:        deps.Hasher,
		mailer:        deps.Mailer,
		invitationTTL: ttl,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

var (
	errUserNotFound       = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
	errEmailTaken         = internal.NewConflictError("Email already exists", internal.ErrCodeEmailTaken)
	errRoleNotAssignable  = internal.NewBadRequestError("Associated role does not exist", internal.ErrCodeRoleNotFound)
	errDepartmentNotFound = internal.NewBadRequestError("Associated department does not exist", internal.ErrCodeDepartmentNotFound)
	errInvitationInvalid  = internal.NewBadRequestError("Invalid or expired invitation", internal.ErrCodeInvitationInvalid)
	errUnsharedCreds      = internal.NewBadRequestError("User owns credentials that have never been shared; share them before deleting the user", internal.ErrCodeUnsharedCredentials)
	errPendingShares      = internal.NewBadRequestError("User has credential shares that are still pending acceptance", internal.ErrCodePendingShares)
)

func (s *Service) Create(ctx context.Context, companyID string, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, companyID, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, errEmailTaken
	}

	if err := s.checkPlacement(ctx, companyID, &dto.RoleID, &dto.DepartmentID); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := s.now()
	dm := &userDatamodel.User{
		ID:           ids.New(),
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: hash,
		CompanyID:    &companyID,
		RoleID:       &dto.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if dto.DepartmentID != "" {
		dm.DepartmentID = &dto.DepartmentID
	}

	if err := s.repo.Create(ctx, dm); err != nil {
		s.logger.Error("failed to create user", "error", err, "company_id", companyID)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", dm.ID, "company_id", companyID)
	return FromDataModel(dm), nil
}

func (s *Service) List(ctx context.Context, companyID string, filter ListFilter) ([]*User, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.DepartmentID != "" {
		if err := s.checkPlacement(ctx, companyID, nil, &filter.DepartmentID); err != nil {
			return nil, err
		}
	}

	rows, err := s.repo.ListByCompany(ctx, companyID, filter)
	if err != nil {
		s.logger.Error("failed to list users", "error", err, "company_id", companyID)
		return nil, internal.NewInternalError("failed to list users", err)
	}
	out := make([]*User, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (*User, error) {
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(dm), nil
}

// Profile loads the caller's own record; platform users carry no company.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	dm, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to fetch user", err)
	}
	if dm == nil {
		return nil, errUserNotFound
	}
	return FromDataModel(dm), nil
}

func (s *Service) Update(ctx context.Context, companyID, id string, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, companyID, dto.RoleID, dto.DepartmentID); err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]interface{}{"updated_at": now}
	if dto.Name != nil {
		fields["name"] = *dto.Name
		dm.Name = *dto.Name
	}
	if dto.RoleID != nil {
		fields["role_id"] = *dto.RoleID
		dm.RoleID = dto.RoleID
	}
	if dto.DepartmentID != nil {
		if *dto.DepartmentID == "" {
			fields["department_id"] = nil
			dm.DepartmentID = nil
		} else {
			fields["department_id"] = *dto.DepartmentID
			dm.DepartmentID = dto.DepartmentID
		}
	}

	if err := s.repo.Update(ctx, dm.ID, fields); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", dm.ID)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	dm.UpdatedAt = now
	return FromDataModel(dm), nil
}

// Delete refuses to orphan secrets: every owned credential must have been shared and every live
// share consumed before the owner can go. Expired tokens do not count as shares.
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return err
	}

	credentialIDs, err := s.repo.OwnedCredentialIDs(ctx, dm.ID)
	if err != nil {
		return internal.NewInternalError("failed to load owned credentials", err)
	}

	if len(credentialIDs) > 0 {
		tokens, err := s.repo.LiveShareTokens(ctx, credentialIDs, s.now())
		if err != nil {
			return internal.NewInternalError("failed to load share tokens", err)
		}
		if len(tokens) == 0 {
			return errUnsharedCreds
		}
		for _, t := range tokens {
			if !t.Accessed {
				return errPendingShares
			}
		}
	}

	if err := s.repo.Delete(ctx, dm.ID, credentialIDs); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", dm.ID)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", dm.ID, "company_id", companyID, "credentials_removed", len(credentialIDs))
	return nil
}

// Invite issues a fresh OTP and invitation token and emails them. A failed email aborts the invite.
func (s *Service) Invite(ctx context.Context, companyID, id string) (*InvitationSent, error) {
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	org, err := s.companies.Get(ctx, companyID, companyID)
	if err != nil {
		return nil, err
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate invitation code", err)
	}
	token, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate invitation token", err)
	}

	now := s.now()
	expiresAt := now.Add(s.invitationTTL)
	fields := map[string]interface{}{
		"invitation_otp":          otp,
		"invitation_token":        token,
		"invitation_token_expiry": expiresAt,
		"updated_at":              now,
	}
	if err := s.repo.Update(ctx, dm.ID, fields); err != nil {
		s.logger.Error("failed to store invitation", "error", err, "user_id", dm.ID)
		return nil, internal.NewInternalError("failed to invite user", err)
	}

	err = s.mailer.SendInvitation(ctx, notification.Invitation{
		Email:       dm.Email,
		Name:        dm.Name,
		CompanyName: org.Name,
		OTP:         otp,
		Token:       token,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		s.logger.Error("failed to send invitation email", "error", err, "user_id", dm.ID)
		return nil, internal.NewDependencyError("Failed to send invitation email", internal.ErrCodeNotificationFailed, err)
	}

	s.logger.Info("user invited", "user_id", dm.ID, "company_id", companyID)
	return &InvitationSent{UserID: dm.ID, Email: dm.Email, ExpiresAt: expiresAt}, nil
}

// AcceptInvitation checks the emailed code. The token stays valid for the password step.
func (s *Service) AcceptInvitation(ctx context.Context, dto AcceptInvitationDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	dm, err := s.pendingInvitation(ctx, dto.Token)
	if err != nil {
		return nil, err
	}
	if dm.InvitationOTP == nil || subtle.ConstantTimeCompare([]byte(*dm.InvitationOTP), []byte(dto.OTP)) != 1 {
		return nil, errInvitationInvalid
	}

	now := s.now()
	fields := map[string]interface{}{
		"is_accepted":    true,
		"invitation_otp": nil,
		"updated_at":     now,
	}
	if err := s.repo.Update(ctx, dm.ID, fields); err != nil {
		return nil, internal.NewInternalError("failed to accept invitation", err)
	}
	dm.IsAccepted = true
	dm.UpdatedAt = now
	return FromDataModel(dm), nil
}

func (s *Service) CreatePassword(ctx context.Context, dto CreatePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	dm, err := s.pendingInvitation(ctx, dto.Token)
	if err != nil {
		return err
	}
	if !dm.IsAccepted {
		return errInvitationInvalid
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	fields := map[string]interface{}{
		"password_hash":           hash,
		"invitation_token":        nil,
		"invitation_token_expiry": nil,
		"updated_at":              s.now(),
	}
	if err := s.repo.Update(ctx, dm.ID, fields); err != nil {
		return internal.NewInternalError("failed to set password", err)
	}

	s.logger.Info("invited user set password", "user_id", dm.ID)
	return nil
}

func (s *Service) pendingInvitation(ctx context.Context, token string) (*userDatamodel.User, error) {
	dm, err := s.repo.FindByInvitationToken(ctx, token)
	if err != nil {
		return nil, internal.NewInternalError("failed to load invitation", err)
	}
	if dm == nil || dm.InvitationTokenExpiry == nil || s.now().After(*dm.InvitationTokenExpiry) {
		return nil, errInvitationInvalid
	}
	return dm, nil
}

func (s *Service) find(ctx context.Context, companyID, id string) (*userDatamodel.User, error) {
	if err := validation.ValidateID("id", id); err != nil {
		return nil, err
	}
	dm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to fetch user", err)
	}
	if dm == nil || dm.CompanyID == nil || *dm.CompanyID != companyID {
		return nil, errUserNotFound
	}
	return dm, nil
}

// checkPlacement validates an optional role and department against the company.
func (s *Service) checkPlacement(ctx context.Context, companyID string, roleID, departmentID *string) error {
	if roleID != nil {
		ok, err := s.roles.IsAssignable(ctx, companyID, *roleID)
		if err != nil {
			return err
		}
		if !ok {
			return errRoleNotAssignable
		}
	}
	if departmentID != nil && *departmentID != "" {
		ok, err := s.departments.Exists(ctx, companyID, *departmentID)
		if err != nil {
			return err
		}
		if !ok {
			return errDepartmentNotFound
		}
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
