package department

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
)

type RepositoryAPI interface {
	Create(ctx context.Context, d *orgDatamodel.Department) error
	FindByID(ctx context.Context, id string) (*orgDatamodel.Department, error)
	FindByName(ctx context.Context, companyID, name string) (*orgDatamodel.Department, error)
	ListByCompany(ctx context.Context, companyID string) ([]*orgDatamodel.Department, error)
	Rename(ctx context.Context, id, name string, at time.Time) error
	// Delete detaches members and removes the department in one transaction.
	Delete(ctx context.Context, id string) error
	Members(ctx context.Context, id string) ([]*userDatamodel.User, error)
}

// CompanyChecker validates the company a platform caller names.
type CompanyChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo      RepositoryAPI
	companies CompanyChecker
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, companies CompanyChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		companies: companies,
		logger:    logger,
	}
}

var (
	errDepartmentNotFound  = internal.NewNotFoundError("Department not found", internal.ErrCodeDepartmentNotFound)
	errDepartmentNameTaken = internal.NewConflictError("Department with this name already exists in the company", internal.ErrCodeDuplicateName)
)

func (s *Service) Create(ctx context.Context, companyID, actorID string, dto CreateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.companies.Exists(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, internal.NewBadRequestError("Associated company does not exist", internal.ErrCodeCompanyNotFound)
	}

	if err := s.ensureNameFree(ctx, companyID, dto.Name, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dm := &orgDatamodel.Department{
		ID:        ids.New(),
		Name:      dto.Name,
		CompanyID: companyID,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, dm); err != nil {
		s.logger.Error("failed to create department", "error", err, "company_id", companyID)
		return nil, internal.NewInternalError("failed to create department", err)
	}

	s.logger.Info("department created", "department_id", dm.ID, "company_id", companyID)
	return FromDataModel(dm), nil
}

func (s *Service) List(ctx context.Context, companyID string) ([]*Department, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to list departments", "error", err, "company_id", companyID)
		return nil, internal.NewInternalError("failed to list departments", err)
	}
	out := make([]*Department, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (*Department, error) {
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(dm), nil
}

func (s *Service) Update(ctx context.Context, companyID, id string, dto UpdateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, companyID, *dto.Name, dm.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.Rename(ctx, dm.ID, *dto.Name, now); err != nil {
		s.logger.Error("failed to rename department", "error", err, "department_id", dm.ID)
		return nil, internal.NewInternalError("failed to update department", err)
	}
	dm.Name = *dto.Name
	dm.UpdatedAt = now
	return FromDataModel(dm), nil
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, dm.ID); err != nil {
		s.logger.Error("failed to delete department", "error", err, "department_id", dm.ID)
		return internal.NewInternalError("failed to delete department", err)
	}
	s.logger.Info("department deleted", "department_id", dm.ID, "company_id", companyID)
	return nil
}

// Members lists the department's current users.
func (s *Service) Members(ctx context.Context, companyID, id string) ([]Member, error) {
	dm, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.Members(ctx, dm.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list department members", err)
	}
	out := make([]Member, 0, len(users))
	for _, u := range users {
		out = append(out, MemberFromUser(u))
	}
	return out, nil
}

// Exists reports whether the department belongs to the company.
func (s *Service) Exists(ctx context.Context, companyID, id string) (bool, error) {
	_, err := s.find(ctx, companyID, id)
	if err != nil {
		if internal.IsType(err, internal.ErrorTypeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) find(ctx context.Context, companyID, id string) (*orgDatamodel.Department, error) {
	if err := validation.ValidateID("id", id); err != nil {
		return nil, err
	}
	dm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to fetch department", err)
	}
	if dm == nil || dm.CompanyID != companyID {
		return nil, errDepartmentNotFound
	}
	return dm, nil
}

func (s *Service) ensureNameFree(ctx context.Context, companyID, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, companyID, name)
	if err != nil {
		return internal.NewInternalError("failed to check department name", err)
	}
	if existing != nil && existing.ID != selfID {
		return errDepartmentNameTaken
	}
	return nil
}
