package company

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/common/validation"
	orgDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
)

type RepositoryAPI interface {
	Create(ctx context.Context, c *orgDatamodel.Company) error
	FindByID(ctx context.Context, id string) (*orgDatamodel.Company, error)
	FindByName(ctx context.Context, name string) (*orgDatamodel.Company, error)
	List(ctx context.Context) ([]*orgDatamodel.Company, error)
	Update(ctx context.Context, c *orgDatamodel.Company) error
	CountUsers(ctx context.Context, id string) (int64, error)
	// DeleteWithDepartments removes the company's departments and then the company in one transaction.
	DeleteWithDepartments(ctx context.Context, id string) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

var (
	errCompanyNotFound  = internal.NewNotFoundError("Company not found", internal.ErrCodeCompanyNotFound)
	errCompanyNameTaken = internal.NewConflictError("Company with this name already exists", internal.ErrCodeDuplicateName)
)

func (s *Service) Create(ctx context.Context, actorID string, dto CreateCompanyDTO) (*Company, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, dto.Name, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dm := &orgDatamodel.Company{
		ID:        ids.New(),
		Name:      dto.Name,
		Address:   dto.Address,
		Size:      dto.Size,
		Industry:  dto.Industry,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actorID != "" {
		dm.CreatedBy = &actorID
	}

	if err := s.repo.Create(ctx, dm); err != nil {
		s.logger.Error("failed to create company", "error", err)
		return nil, internal.NewInternalError("failed to create company", err)
	}
	s.logger.Info("company created", "company_id", dm.ID)
	return FromDataModel(dm), nil
}

// List returns every company to platform callers and only their own company to everyone else.
func (s *Service) List(ctx context.Context, scope string) ([]*Company, error) {
	if scope != "" {
		c, err := s.Get(ctx, scope, scope)
		if err != nil {
			return nil, err
		}
		return []*Company{c}, nil
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list companies", "error", err)
		return nil, internal.NewInternalError("failed to list companies", err)
	}
	out := make([]*Company, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, scope, id string) (*Company, error) {
	dm, err := s.find(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(dm), nil
}

func (s *Service) Update(ctx context.Context, scope, id string, dto UpdateCompanyDTO) (*Company, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	dm, err := s.find(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		if err := s.ensureNameFree(ctx, *dto.Name, dm.ID); err != nil {
			return nil, err
		}
		dm.Name = *dto.Name
	}
	if dto.Address != nil {
		dm.Address = *dto.Address
	}
	if dto.Size != nil {
		dm.Size = *dto.Size
	}
	if dto.Industry != nil {
		dm.Industry = *dto.Industry
	}
	dm.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, dm); err != nil {
		s.logger.Error("failed to update company", "error", err, "company_id", dm.ID)
		return nil, internal.NewInternalError("failed to update company", err)
	}
	return FromDataModel(dm), nil
}

// Delete cascades departments. A company that still has users is kept.
func (s *Service) Delete(ctx context.Context, scope, id string) error {
	dm, err := s.find(ctx, scope, id)
	if err != nil {
		return err
	}

	users, err := s.repo.CountUsers(ctx, dm.ID)
	if err != nil {
		return internal.NewInternalError("failed to count company users", err)
	}
	if users > 0 {
		return internal.NewBadRequestError("Company still has users", internal.ErrCodeCompanyInUse)
	}

	if err := s.repo.DeleteWithDepartments(ctx, dm.ID); err != nil {
		s.logger.Error("failed to delete company", "error", err, "company_id", dm.ID)
		return internal.NewInternalError("failed to delete company", err)
	}
	s.logger.Info("company deleted", "company_id", dm.ID)
	return nil
}

// Exists is used by other modules to validate a company reference.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	if !ids.Valid(id) {
		return false, nil
	}
	dm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, internal.NewInternalError("failed to fetch company", err)
	}
	return dm != nil, nil
}

func (s *Service) find(ctx context.Context, scope, id string) (*orgDatamodel.Company, error) {
	if err := validation.ValidateID("id", id); err != nil {
		return nil, err
	}
	if scope != "" && scope != id {
		return nil, errCompanyNotFound
	}
	dm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to fetch company", err)
	}
	if dm == nil {
		return nil, errCompanyNotFound
	}
	return dm, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return internal.NewInternalError("failed to check company name", err)
	}
	if existing != nil && existing.ID != selfID {
		return errCompanyNameTaken
	}
	return nil
}
