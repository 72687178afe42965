package role_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/permission"
	"github.com/frahmantamala/credential-vault/internal/role"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockRepository keeps roles in memory.
type MockRepository struct {
	roles       map[string]*accessDatamodel.Role
	assignments map[string]int64
	shouldFail  bool
	failError   error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		roles:       make(map[string]*accessDatamodel.Role),
		assignments: make(map[string]int64),
	}
}

func (m *MockRepository) Create(_ context.Context, dm *accessDatamodel.Role) error {
	if m.shouldFail {
		return m.failError
	}
	m.roles[dm.ID] = dm
	return nil
}

func (m *MockRepository) FindByID(_ context.Context, id string) (*accessDatamodel.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	return m.roles[id], nil
}

func (m *MockRepository) FindByName(_ context.Context, companyID, name string) (*accessDatamodel.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	for _, r := range m.roles {
		if r.CompanyID != nil && *r.CompanyID == companyID && strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) ListByCompany(_ context.Context, companyID string) ([]*accessDatamodel.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*accessDatamodel.Role
	for _, r := range m.roles {
		if r.CompanyID != nil && *r.CompanyID == companyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRepository) Rename(_ context.Context, id, name string, at time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	m.roles[id].Name = name
	m.roles[id].UpdatedAt = at
	return nil
}

func (m *MockRepository) ReplacePermissions(_ context.Context, id string, permissionIDs []string, _ time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	perms := make([]accessDatamodel.Permission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		perms = append(perms, accessDatamodel.Permission{ID: pid})
	}
	m.roles[id].Permissions = perms
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	if m.shouldFail {
		return m.failError
	}
	delete(m.roles, id)
	return nil
}

func (m *MockRepository) CountAssignedUsers(_ context.Context, id string) (int64, error) {
	if m.shouldFail {
		return 0, m.failError
	}
	return m.assignments[id], nil
}

// MockCatalog resolves ids against a fixed set.
type MockCatalog struct {
	known map[string]*permission.Permission
}

func (c *MockCatalog) Resolve(_ context.Context, permissionIDs []string) ([]*permission.Permission, error) {
	var out []*permission.Permission
	for _, id := range permissionIDs {
		p, ok := c.known[id]
		if !ok {
			return nil, internal.NewBadRequestError("Invalid permission ids: "+id, internal.ErrCodePermissionNotFound)
		}
		out = append(out, p)
	}
	return out, nil
}

var _ = Describe("Role Service", func() {
	var (
		ctx       context.Context
		repo      *MockRepository
		catalog   *MockCatalog
		svc       *role.Service
		companyID string
		actorID   string
		getRole   *permission.Permission
		delRole   *permission.Permission
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		getRole = &permission.Permission{ID: ids.New(), Key: permission.GetRole, Module: "role"}
		delRole = &permission.Permission{ID: ids.New(), Key: permission.DeleteRole, Module: "role"}
		catalog = &MockCatalog{known: map[string]*permission.Permission{getRole.ID: getRole, delRole.ID: delRole}}
		svc = role.NewService(repo, catalog, logger.Discard())
		companyID = ids.New()
		actorID = ids.New()
	})

	Describe("Create", func() {
		It("creates a role with resolved permissions", func() {
			created, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{
				Name:          "  Manager ",
				PermissionIDs: []string{getRole.ID},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Name).To(Equal("Manager"))
			Expect(created.CompanyID).To(Equal(companyID))
			Expect(created.PermissionKeys()).To(ConsistOf(permission.GetRole))
		})

		It("rejects a duplicate name regardless of case", func() {
			_, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "MANAGER"})
			Expect(internal.IsType(err, internal.ErrorTypeConflict)).To(BeTrue())
		})

		It("allows the same name in another company", func() {
			_, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Create(ctx, ids.New(), actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects an empty name", func() {
			_, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "   "})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("rejects unknown permission ids", func() {
			_, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{
				Name:          "Manager",
				PermissionIDs: []string{ids.New()},
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePermissionNotFound))
			Expect(repo.roles).To(BeEmpty())
		})

		It("wraps repository failures as internal errors", func() {
			repo.shouldFail = true
			repo.failError = errors.New("db down")
			_, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(internal.IsType(err, internal.ErrorTypeInternal)).To(BeTrue())
		})
	})

	Describe("List", func() {
		It("hides system roles", func() {
			repo.roles["ceo"] = &accessDatamodel.Role{ID: "ceo", Name: "CEO", CompanyID: &companyID, IsSystemRole: true}
			_, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())

			roles, err := svc.List(ctx, companyID)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(HaveLen(1))
			Expect(roles[0].Name).To(Equal("Manager"))
		})
	})

	Describe("Get", func() {
		It("hides roles of other companies", func() {
			created, err := svc.Create(ctx, ids.New(), actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Get(ctx, companyID, created.ID)
			Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
		})

		It("rejects a malformed id", func() {
			_, err := svc.Get(ctx, companyID, "not-an-id")
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("mutations on system roles", func() {
		var ceoID string

		BeforeEach(func() {
			ceoID = ids.New()
			repo.roles[ceoID] = &accessDatamodel.Role{ID: ceoID, Name: "CEO", CompanyID: &companyID, IsSystemRole: true}
		})

		It("refuses rename", func() {
			name := "Chief"
			_, err := svc.Update(ctx, companyID, ceoID, role.UpdateRoleDTO{Name: &name})
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})

		It("refuses delete", func() {
			err := svc.Delete(ctx, companyID, ceoID)
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
			Expect(repo.roles).To(HaveKey(ceoID))
		})

		It("refuses permission reassignment", func() {
			_, err := svc.AssignPermissions(ctx, companyID, ceoID, role.AssignPermissionsDTO{PermissionIDs: []string{}})
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})
	})

	Describe("Update", func() {
		It("renames a role", func() {
			created, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())

			name := "Lead"
			updated, err := svc.Update(ctx, companyID, created.ID, role.UpdateRoleDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Lead"))
		})

		It("allows a case-only rename of the same role", func() {
			created, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())

			name := "manager"
			_, err = svc.Update(ctx, companyID, created.ID, role.UpdateRoleDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())
		})

		It("requires a field", func() {
			_, err := svc.Update(ctx, companyID, ids.New(), role.UpdateRoleDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmptyUpdate))
		})
	})

	Describe("Delete", func() {
		It("refuses a role that is still assigned", func() {
			created, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())
			repo.assignments[created.ID] = 2

			err = svc.Delete(ctx, companyID, created.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeRoleInUse))
		})

		It("deletes an unassigned role", func() {
			created, err := svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Manager"})
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Delete(ctx, companyID, created.ID)).To(Succeed())
			Expect(repo.roles).NotTo(HaveKey(created.ID))
		})
	})

	Describe("AssignPermissions", func() {
		var created *role.Role

		BeforeEach(func() {
			var err error
			created, err = svc.Create(ctx, companyID, actorID, role.CreateRoleDTO{
				Name:          "Manager",
				PermissionIDs: []string{getRole.ID},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("replaces rather than merges", func() {
			updated, err := svc.AssignPermissions(ctx, companyID, created.ID, role.AssignPermissionsDTO{
				PermissionIDs: []string{delRole.ID},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PermissionKeys()).To(ConsistOf(permission.DeleteRole))
			Expect(repo.roles[created.ID].Permissions).To(HaveLen(1))
			Expect(repo.roles[created.ID].Permissions[0].ID).To(Equal(delRole.ID))
		})

		It("leaves the role untouched when one id is unknown", func() {
			_, err := svc.AssignPermissions(ctx, companyID, created.ID, role.AssignPermissionsDTO{
				PermissionIDs: []string{delRole.ID, ids.New()},
			})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
			Expect(repo.roles[created.ID].Permissions).To(HaveLen(1))
			Expect(repo.roles[created.ID].Permissions[0].ID).To(Equal(getRole.ID))
		})

		It("requires the id list", func() {
			_, err := svc.AssignPermissions(ctx, companyID, created.ID, role.AssignPermissionsDTO{})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})
})
