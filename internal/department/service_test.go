package department_test

import (
	"context"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/company"
	companyPostgres "github.com/frahmantamala/credential-vault/internal/company/postgres"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/core/testdb"
	"github.com/frahmantamala/credential-vault/internal/department"
	departmentPostgres "github.com/frahmantamala/credential-vault/internal/department/postgres"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Department Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		svc       *department.Service
		companyID string
		actorID   string
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		companies := company.NewService(companyPostgres.NewCompanyRepository(db), logger.Discard())
		acme, err := companies.Create(ctx, "", company.CreateCompanyDTO{Name: "Acme"})
		Expect(err).NotTo(HaveOccurred())
		companyID = acme.ID
		actorID = ids.New()

		svc = department.NewService(departmentPostgres.NewDepartmentRepository(db), companies, logger.Discard())
	})

	addMember := func(name, email string, departmentID string) *userDatamodel.User {
		now := time.Now().UTC()
		u := &userDatamodel.User{
			ID: ids.New(), Name: name, Email: email, CompanyID: &companyID, DepartmentID: &departmentID,
			CreatedAt: now, UpdatedAt: now,
		}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	It("creates a department in the company", func() {
		d, err := svc.Create(ctx, companyID, actorID, department.CreateDepartmentDTO{Name: "Engineering"})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.CompanyID).To(Equal(companyID))
		Expect(d.CreatedBy).To(Equal(actorID))
	})

	It("rejects an unknown company", func() {
		_, err := svc.Create(ctx, ids.New(), actorID, department.CreateDepartmentDTO{Name: "Engineering"})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeCompanyNotFound))
	})

	It("rejects duplicate names within a company regardless of case", func() {
		_, err := svc.Create(ctx, companyID, actorID, department.CreateDepartmentDTO{Name: "Engineering"})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Create(ctx, companyID, actorID, department.CreateDepartmentDTO{Name: "ENGINEERING"})
		Expect(internal.IsType(err, internal.ErrorTypeConflict)).To(BeTrue())
	})

	It("does not leak departments across companies", func() {
		d, err := svc.Create(ctx, companyID, actorID, department.CreateDepartmentDTO{Name: "Engineering"})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Get(ctx, ids.New(), d.ID)
		Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
	})

	It("renames a department", func() {
		d, err := svc.Create(ctx, companyID, actorID, department.CreateDepartmentDTO{Name: "Engineering"})
		Expect(err).NotTo(HaveOccurred())

		name := "Platform"
		updated, err := svc.Update(ctx, companyID, d.ID, department.UpdateDepartmentDTO{Name: &name})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Name).To(Equal("Platform"))
	})

	It("lists members and detaches them on delete", func() {
		d, err := svc.Create(ctx, companyID, actorID, department.CreateDepartmentDTO{Name: "Engineering"})
		Expect(err).NotTo(HaveOccurred())
		bob := addMember("Bob", "bob@acme.io", d.ID)
		addMember("Carol", "carol@acme.io", d.ID)

		members, err := svc.Members(ctx, companyID, d.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(members).To(HaveLen(2))
		Expect(members[0].Name).To(Equal("Bob"))

		Expect(svc.Delete(ctx, companyID, d.ID)).To(Succeed())

		var reloaded userDatamodel.User
		Expect(db.Where("id = ?", bob.ID).First(&reloaded).Error).To(Succeed())
		Expect(reloaded.DepartmentID).To(BeNil())
	})
})
