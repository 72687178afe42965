package role

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/permission"
)

type RepositoryAPI interface {
	Create(ctx context.Context, role *accessDatamodel.Role) error
	FindByID(ctx context.Context, id string) (*accessDatamodel.Role, error)
	FindByName(ctx context.Context, companyID, name string) (*accessDatamodel.Role, error)
	ListByCompany(ctx context.Context, companyID string) ([]*accessDatamodel.Role, error)
	Rename(ctx context.Context, id, name string, at time.Time) error
	ReplacePermissions(ctx context.Context, id string, permissionIDs []string, at time.Time) error
	Delete(ctx context.Context, id string) error
	CountAssignedUsers(ctx context.Context, id string) (int64, error)
}

// PermissionResolver validates permission ids against the catalog.
type PermissionResolver interface {
	Resolve(ctx context.Context, permissionIDs []string) ([]*permission.Permission, error)
}

type Service struct {
	repo        RepositoryAPI
	permissions PermissionResolver
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, permissions PermissionResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		logger:      logger,
	}
}

var (
	errRoleNotFound   = internal.NewNotFoundError("Role not found", internal.ErrCodeRoleNotFound)
	errRoleNameTaken  = internal.NewConflictError("Role name already exists", internal.ErrCodeDuplicateName)
	errSystemRoleLock = internal.NewForbiddenError("System roles cannot be modified", internal.ErrCodeSystemRole)
)

func (s *Service) Create(ctx context.Context, companyID, actorID string, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByName(ctx, companyID, dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to check role name", err)
	}
	if existing != nil {
		return nil, errRoleNameTaken
	}

	var perms []*permission.Permission
	if len(dto.PermissionIDs) > 0 {
		perms, err = s.permissions.Resolve(ctx, dto.PermissionIDs)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	dm := &accessDatamodel.Role{
		ID:        ids.New(),
		Name:      dto.Name,
		CompanyID: &companyID,
		CreatedBy: &actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, p := range perms {
		dm.Permissions = append(dm.Permissions, *permission.ToDataModel(p))
	}

	if err := s.repo.Create(ctx, dm); err != nil {
		s.logger.Error("failed to create role", "error", err, "company_id", companyID)
		return nil, internal.NewInternalError("failed to create role", err)
	}

	s.logger.Info("role created", "role_id", dm.ID, "company_id", companyID, "permissions", len(perms))
	return FromDataModel(dm), nil
}

// List returns the company's assignable roles; system roles are hidden.
func (s *Service) List(ctx context.Context, companyID string) ([]*Role, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to list roles", "error", err, "company_id", companyID)
		return nil, internal.NewInternalError("failed to list roles", err)
	}

	roles := make([]*Role, 0, len(rows))
	for _, row := range rows {
		if row.IsSystemRole {
			continue
		}
		roles = append(roles, FromDataModel(row))
	}
	return roles, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (*Role, error) {
	if err := validation.ValidateID("id", id); err != nil {
		return nil, err
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to fetch role", err)
	}
	if row == nil {
		return nil, errRoleNotFound
	}
	r := FromDataModel(row)
	if !r.BelongsTo(companyID) {
		return nil, errRoleNotFound
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, companyID, id string, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	r, err := s.mutable(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	clash, err := s.repo.FindByName(ctx, companyID, *dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to check role name", err)
	}
	if clash != nil && clash.ID != r.ID {
		return nil, errRoleNameTaken
	}

	now := time.Now().UTC()
	if err := s.repo.Rename(ctx, r.ID, *dto.Name, now); err != nil {
		s.logger.Error("failed to rename role", "error", err, "role_id", r.ID)
		return nil, internal.NewInternalError("failed to update role", err)
	}
	r.Name = *dto.Name
	r.UpdatedAt = now
	return r, nil
}

// Delete refuses system roles and roles still assigned to users.
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	r, err := s.mutable(ctx, companyID, id)
	if err != nil {
		return err
	}

	assigned, err := s.repo.CountAssignedUsers(ctx, r.ID)
	if err != nil {
		return internal.NewInternalError("failed to count role assignments", err)
	}
	if assigned > 0 {
		return internal.NewBadRequestError("Role is still assigned to users", internal.ErrCodeRoleInUse)
	}

	if err := s.repo.Delete(ctx, r.ID); err != nil {
		s.logger.Error("failed to delete role", "error", err, "role_id", r.ID)
		return internal.NewInternalError("failed to delete role", err)
	}
	s.logger.Info("role deleted", "role_id", r.ID, "company_id", companyID)
	return nil
}

// AssignPermissions fully replaces the role's permission set. Every id is resolved before any
// write, so one unknown id leaves the role untouched.
func (s *Service) AssignPermissions(ctx context.Context, companyID, id string, dto AssignPermissionsDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	r, err := s.mutable(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	perms := []*permission.Permission{}
	if len(dto.PermissionIDs) > 0 {
		perms, err = s.permissions.Resolve(ctx, dto.PermissionIDs)
		if err != nil {
			return nil, err
		}
	}

	permissionIDs := make([]string, 0, len(perms))
	for _, p := range perms {
		permissionIDs = append(permissionIDs, p.ID)
	}

	now := time.Now().UTC()
	if err := s.repo.ReplacePermissions(ctx, r.ID, permissionIDs, now); err != nil {
		s.logger.Error("failed to replace role permissions", "error", err, "role_id", r.ID)
		return nil, internal.NewInternalError("failed to assign permissions", err)
	}

	s.logger.Info("role permissions replaced", "role_id", r.ID, "permissions", len(permissionIDs))
	r.Permissions = perms
	r.UpdatedAt = now
	return r, nil
}

// IsAssignable is used by the user module: only non-system roles of the company can be given out.
func (s *Service) IsAssignable(ctx context.Context, companyID, id string) (bool, error) {
	r, err := s.Get(ctx, companyID, id)
	if err != nil {
		if internal.IsType(err, internal.ErrorTypeNotFound) {
			return false, nil
		}
		return false, err
	}
	return !r.IsSystemRole, nil
}

func (s *Service) mutable(ctx context.Context, companyID, id string) (*Role, error) {
	r, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if r.IsSystemRole {
		return nil, errSystemRoleLock
	}
	return r, nil
}
