package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
)

// OwnerRoleName is the system role created with every company.
const OwnerRoleName = "CEO"

// Registration is written atomically: company, owner role with the full catalog, owner user.
type Registration struct {
	User    *userDatamodel.User
	Company *orgDatamodel.Company
	Role    *accessDatamodel.Role
}

type RepositoryAPI interface {
	RegisterOwner(ctx context.Context, reg *Registration) error
	FindUsersByEmail(ctx context.Context, email string) ([]*userDatamodel.User, error)
}

// PrincipalResolver joins user → role → permission keys for one request.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID string) (*internal.Principal, error)
}

type Service struct {
	repo     RepositoryAPI
	resolver PrincipalResolver
	tokens   TokenGenerator
	hasher   PasswordHasher
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, resolver PrincipalResolver, tokens TokenGenerator, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*SessionResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now().UTC()
	userID := ids.New()
	companyID := ids.New()
	roleID := ids.New()

	reg := &Registration{
		Company: &orgDatamodel.Company{
			ID:        companyID,
			Name:      dto.CompanyName,
			Address:   dto.CompanyAddress,
			Size:      dto.CompanySize,
			Industry:  dto.CompanyIndustry,
			CreatedBy: &userID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Role: &accessDatamodel.Role{
			ID:           roleID,
			Name:         OwnerRoleName,
			CompanyID:    &companyID,
			IsSystemRole: true,
			CreatedBy:    &userID,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		User: &userDatamodel.User{
			ID:           userID,
			Name:         dto.Name,
			Email:        dto.Email,
			PasswordHash: hash,
			CompanyID:    &companyID,
			RoleID:       &roleID,
			IsAccepted:   true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	if err := s.repo.RegisterOwner(ctx, reg); err != nil {
		if errors.Is(err, ErrCompanyNameTaken) {
			return nil, internal.NewConflictError("Company name already exists", internal.ErrCodeDuplicateName)
		}
		s.logger.Error("registration failed", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to register", err)
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(userID, roleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign session token", err)
	}

	s.logger.Info("company registered",
		"company_id", companyID,
		"user_id", userID,
		"role_id", roleID,
		"permissions", len(reg.Role.Permissions))

	return &SessionResponse{
		User: AccountView{
			ID:          userID,
			Name:        dto.Name,
			Email:       dto.Email,
			CompanyID:   companyID,
			CompanyName: dto.CompanyName,
			RoleID:      roleID,
			RoleName:    OwnerRoleName,
		},
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) Login(ctx context.Context, dto LoginDTO) (*SessionResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.repo.FindUsersByEmail(ctx, dto.Email)
	if err != nil {
		s.logger.Error("login lookup failed", "error", err)
		return nil, internal.NewInternalError("failed to look up user", err)
	}

	if dto.CompanyID != "" {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.CompanyID != nil && *c.CompanyID == dto.CompanyID {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	switch {
	case len(candidates) == 0:
		return nil, internal.ErrInvalidCredentials
	case len(candidates) > 1:
		return nil, internal.NewBadRequestError("Email is registered in several companies; company_id is required", internal.ErrCodeAmbiguousLogin)
	}

	u := candidates[0]
	if !s.hasher.Compare(dto.Password, u.PasswordHash) {
		s.logger.Warn("login rejected", "user_id", u.ID)
		return nil, internal.ErrInvalidCredentials
	}

	roleID := ""
	if u.RoleID != nil {
		roleID = *u.RoleID
	}
	token, expiresAt, err := s.tokens.GenerateAccessToken(u.ID, roleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign session token", err)
	}

	view := AccountView{ID: u.ID, Name: u.Name, Email: u.Email, RoleID: roleID}
	if u.CompanyID != nil {
		view.CompanyID = *u.CompanyID
	}

	return &SessionResponse{User: view, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate verifies a bearer token and resolves the principal behind it.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*internal.Principal, error) {
	if bearer == "" {
		return nil, internal.ErrUnauthenticated
	}

	claims, err := s.tokens.ValidateToken(bearer)
	if err != nil {
		return nil, err
	}

	principal, err := s.resolver.Resolve(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("failed to resolve principal", "user_id", claims.UserID, "error", err)
		return nil, internal.NewInternalError("failed to resolve principal", err)
	}
	if principal == nil {
		return nil, internal.NewUnauthorizedError("User not found", internal.ErrCodeUserNotFound)
	}
	return principal, nil
}
