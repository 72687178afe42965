package permission

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*accessDatamodel.Permission, error)
	FindByIDs(ctx context.Context, ids []string) ([]*accessDatamodel.Permission, error)
	FindByKey(ctx context.Context, key string) (*accessDatamodel.Permission, error)
	Create(ctx context.Context, p *accessDatamodel.Permission) error
	EnsurePlatformRole(ctx context.Context, role *accessDatamodel.Role) (bool, error)
	GrantCatalogToSystemRoles(ctx context.Context) (int, error)
}

// Platform roles have no company and pass the legacy role-name gate on company routes.
const (
	SuperAdminRole = "superAdmin"
	AdminRole      = "admin"
)

const (
	cacheSize = 512
	cacheTTL  = 10 * time.Minute
)

// Service exposes the permission catalog. Entries are immutable once seeded, so lookups by id are
// served from an expiring LRU.
type Service struct {
	repo   RepositoryAPI
	cache  *lru.LRU[string, *Permission]
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  lru.NewLRU[string, *Permission](cacheSize, nil, cacheTTL),
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*Permission, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list permissions", "error", err)
		return nil, internal.NewInternalError("failed to list permissions", err)
	}

	result := make([]*Permission, 0, len(rows))
	for _, row := range rows {
		p := FromDataModel(row)
		s.cache.Add(p.ID, p)
		result = append(result, p)
	}
	return result, nil
}

// Resolve returns the catalog entries for ids. Any unknown id rejects the whole call.
func (s *Service) Resolve(ctx context.Context, permissionIDs []string) ([]*Permission, error) {
	unique := dedupe(permissionIDs)
	found := make(map[string]*Permission, len(unique))

	var misses []string
	for _, id := range unique {
		if p, ok := s.cache.Get(id); ok {
			found[id] = p
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		rows, err := s.repo.FindByIDs(ctx, misses)
		if err != nil {
			s.logger.Error("failed to resolve permissions", "error", err, "count", len(misses))
			return nil, internal.NewInternalError("failed to resolve permissions", err)
		}
		for _, row := range rows {
			p := FromDataModel(row)
			s.cache.Add(p.ID, p)
			found[p.ID] = p
		}
	}

	var unknown []string
	result := make([]*Permission, 0, len(unique))
	for _, id := range unique {
		p, ok := found[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		result = append(result, p)
	}

	if len(unknown) > 0 {
		s.logger.Warn("unknown permission ids", "ids", unknown)
		return nil, internal.NewBadRequestError(
			"Invalid permission ids: "+strings.Join(unknown, ", "),
			internal.ErrCodePermissionNotFound,
		)
	}

	return result, nil
}

// Seed writes every catalog entry that is not yet present and reports how many were inserted.
func (s *Service) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, seed := range Catalog {
		key := NormalizeKey(seed.Key)
		existing, err := s.repo.FindByKey(ctx, key)
		if err != nil {
			return created, internal.NewInternalError("failed to look up permission", err)
		}
		if existing != nil {
			continue
		}

		row := ToDataModel(&Permission{
			ID:        ids.New(),
			Label:     seed.Label,
			Key:       key,
			Module:    seed.Module,
			CreatedAt: time.Now().UTC(),
		})
		if err := s.repo.Create(ctx, row); err != nil {
			return created, internal.NewInternalError("failed to seed permission "+key, err)
		}
		created++
	}

	s.logger.Info("permission catalog seeded", "created", created, "catalog_size", len(Catalog))
	return created, nil
}

// SeedSystemRoles makes sure the platform roles exist and that every system role, company owners
// included, holds the whole catalog. It returns the number of grants added.
func (s *Service) SeedSystemRoles(ctx context.Context) (int, error) {
	for _, name := range []string{SuperAdminRole, AdminRole} {
		now := time.Now().UTC()
		created, err := s.repo.EnsurePlatformRole(ctx, &accessDatamodel.Role{
			ID:           ids.New(),
			Name:         name,
			IsSystemRole: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return 0, internal.NewInternalError("failed to seed platform role "+name, err)
		}
		if created {
			s.logger.Info("platform role created", "role", name)
		}
	}

	granted, err := s.repo.GrantCatalogToSystemRoles(ctx)
	if err != nil {
		return 0, internal.NewInternalError("failed to grant catalog to system roles", err)
	}
	s.logger.Info("system roles synced with catalog", "granted", granted)
	return granted, nil
}

// GroupByModule is used by the listing endpoint.
func GroupByModule(perms []*Permission) map[string][]*Permission {
	grouped := make(map[string][]*Permission)
	for _, p := range perms {
		grouped[p.Module] = append(grouped[p.Module], p)
	}
	for _, list := range grouped {
		sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	}
	return grouped
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
