package user_test

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	"github.com/frahmantamala/credential-vault/internal/company"
	companyPostgres "github.com/frahmantamala/credential-vault/internal/company/postgres"
	accessDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/access"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/core/testdb"
	"github.com/frahmantamala/credential-vault/internal/department"
	departmentPostgres "github.com/frahmantamala/credential-vault/internal/department/postgres"
	"github.com/frahmantamala/credential-vault/internal/notification"
	"github.com/frahmantamala/credential-vault/internal/permission"
	permissionPostgres "github.com/frahmantamala/credential-vault/internal/permission/postgres"
	"github.com/frahmantamala/credential-vault/internal/role"
	rolePostgres "github.com/frahmantamala/credential-vault/internal/role/postgres"
	"github.com/frahmantamala/credential-vault/internal/user"
	userPostgres "github.com/frahmantamala/credential-vault/internal/user/postgres"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recordingMailer struct {
	sent []notification.Invitation
	err  error
}

func (m *recordingMailer) SendInvitation(_ context.Context, data notification.Invitation) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, data)
	return nil
}

func codeOf(err error) internal.ErrorCode {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected an AppError, got %v", err)
	return appErr.Code
}

var _ = Describe("User Service", func() {
	var (
		ctx          context.Context
		db           *gorm.DB
		svc          *user.Service
		mailer       *recordingMailer
		companyID    string
		memberRoleID string
		ceoRoleID    string
		engID        string
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

		permSvc := permission.NewService(permissionPostgres.NewPermissionRepository(db), logger.Discard())
		roles := role.NewService(rolePostgres.NewRoleRepository(db), permSvc, logger.Discard())
		member, err := roles.Create(ctx, companyID, ids.New(), role.CreateRoleDTO{Name: "Member"})
		Expect(err).NotTo(HaveOccurred())
		memberRoleID = member.ID

		now := time.Now().UTC()
		ceo := &accessDatamodel.Role{
			ID: ids.New(), Name: auth.OwnerRoleName, CompanyID: &companyID, IsSystemRole: true,
			CreatedAt: now, UpdatedAt: now,
		}
		Expect(db.Create(ceo).Error).To(Succeed())
		ceoRoleID = ceo.ID

		departments := department.NewService(departmentPostgres.NewDepartmentRepository(db), companies, logger.Discard())
		eng, err := departments.Create(ctx, companyID, ids.New(), department.CreateDepartmentDTO{Name: "Engineering"})
		Expect(err).NotTo(HaveOccurred())
		engID = eng.ID

		mailer = &recordingMailer{}
		svc = user.NewService(userPostgres.NewUserRepository(db), user.Dependencies{
			Roles:       roles,
			Departments: departments,
			Companies:   companies,
			Hasher:      auth.NewBcryptHasher(bcrypt.MinCost),
			Mailer:      mailer,
		}, logger.Discard())
	})

	createUser := func(name, email string) *user.User {
		u, err := svc.Create(ctx, companyID, user.CreateUserDTO{
			Name: name, Email: email, Password: "secret1", RoleID: memberRoleID, DepartmentID: engID,
		})
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	addCredential := func(ownerID string) string {
		now := time.Now().UTC()
		c := &credentialDatamodel.Credential{
			ID: ids.New(), CompanyID: companyID, OwnerID: ownerID, Name: "GitHub",
			URL: "https://github.com", Username: "octo", SealedSecret: "sealed", CreatedAt: now, UpdatedAt: now,
		}
		Expect(db.Create(c).Error).To(Succeed())
		return c.ID
	}

	addToken := func(credentialID, ownerID string, accessed bool, expiresAt time.Time) string {
		now := time.Now().UTC()
		t := &credentialDatamodel.ShareToken{
			ID: ids.New(), CredentialID: credentialID, Token: ids.New(), OwnerID: ownerID,
			Accessed: accessed, ExpiresAt: expiresAt, CreatedAt: now, UpdatedAt: now,
		}
		Expect(db.Create(t).Error).To(Succeed())
		return t.ID
	}

	Describe("Create", func() {
		It("creates a company user in a department", func() {
			u := createUser("Bob Builder", "Bob@Acme.io")
			Expect(u.Email).To(Equal("bob@acme.io"))
			Expect(u.CompanyID).To(Equal(companyID))
			Expect(u.DepartmentID).To(Equal(engID))
			Expect(u.IsAccepted).To(BeFalse())
		})

		It("rejects an email already used in the company", func() {
			createUser("Bob Builder", "bob@acme.io")
			_, err := svc.Create(ctx, companyID, user.CreateUserDTO{
				Name: "Bobby", Email: "BOB@acme.io", Password: "secret1", RoleID: memberRoleID,
			})
			Expect(internal.IsType(err, internal.ErrorTypeConflict)).To(BeTrue())
		})

		It("refuses to hand out a system role", func() {
			_, err := svc.Create(ctx, companyID, user.CreateUserDTO{
				Name: "Mallory", Email: "mallory@acme.io", Password: "secret1", RoleID: ceoRoleID,
			})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeRoleNotFound))
		})

		It("rejects a department from another company", func() {
			_, err := svc.Create(ctx, companyID, user.CreateUserDTO{
				Name: "Carol", Email: "carol@acme.io", Password: "secret1", RoleID: memberRoleID, DepartmentID: ids.New(),
			})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeDepartmentNotFound))
		})

		It("validates the payload", func() {
			_, err := svc.Create(ctx, companyID, user.CreateUserDTO{Name: "Al", Email: "nope", Password: "123"})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("List", func() {
		It("hides holders of system roles", func() {
			createUser("Bob Builder", "bob@acme.io")
			now := time.Now().UTC()
			owner := &userDatamodel.User{
				ID: ids.New(), Name: "Alice", Email: "alice@acme.io", CompanyID: &companyID, RoleID: &ceoRoleID,
				IsAccepted: true, CreatedAt: now, UpdatedAt: now,
			}
			Expect(db.Create(owner).Error).To(Succeed())

			users, err := svc.List(ctx, companyID, user.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
			Expect(users[0].Email).To(Equal("bob@acme.io"))
		})

		It("filters by department", func() {
			createUser("Bob Builder", "bob@acme.io")
			_, err := svc.Create(ctx, companyID, user.CreateUserDTO{
				Name: "Dave", Email: "dave@acme.io", Password: "secret1", RoleID: memberRoleID,
			})
			Expect(err).NotTo(HaveOccurred())

			users, err := svc.List(ctx, companyID, user.ListFilter{DepartmentID: engID})
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
		})
	})

	Describe("Get and Update", func() {
		It("does not resolve users of another company", func() {
			u := createUser("Bob Builder", "bob@acme.io")
			_, err := svc.Get(ctx, ids.New(), u.ID)
			Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
		})

		It("detaches the department with an empty value", func() {
			u := createUser("Bob Builder", "bob@acme.io")
			empty := ""
			name := "Robert Builder"
			updated, err := svc.Update(ctx, companyID, u.ID, user.UpdateUserDTO{Name: &name, DepartmentID: &empty})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Robert Builder"))
			Expect(updated.DepartmentID).To(BeEmpty())

			reloaded, err := svc.Get(ctx, companyID, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.DepartmentID).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		var bob *user.User

		BeforeEach(func() {
			bob = createUser("Bob Builder", "bob@acme.io")
		})

		It("deletes a user who owns nothing", func() {
			Expect(svc.Delete(ctx, companyID, bob.ID)).To(Succeed())
			_, err := svc.Get(ctx, companyID, bob.ID)
			Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
		})

		It("blocks the owner of a never-shared credential", func() {
			addCredential(bob.ID)
			Expect(codeOf(svc.Delete(ctx, companyID, bob.ID))).To(Equal(internal.ErrCodeUnsharedCredentials))
		})

		It("treats expired shares as never shared", func() {
			credentialID := addCredential(bob.ID)
			addToken(credentialID, bob.ID, false, time.Now().UTC().Add(-time.Minute))
			Expect(codeOf(svc.Delete(ctx, companyID, bob.ID))).To(Equal(internal.ErrCodeUnsharedCredentials))
		})

		It("blocks while a live share is pending", func() {
			credentialID := addCredential(bob.ID)
			addToken(credentialID, bob.ID, true, time.Now().UTC().Add(time.Hour))
			addToken(credentialID, bob.ID, false, time.Now().UTC().Add(time.Hour))
			Expect(codeOf(svc.Delete(ctx, companyID, bob.ID))).To(Equal(internal.ErrCodePendingShares))
		})

		It("cascades once every live share is consumed", func() {
			credentialID := addCredential(bob.ID)
			tokenID := addToken(credentialID, bob.ID, true, time.Now().UTC().Add(time.Hour))
			Expect(db.Create(&credentialDatamodel.ShareAccess{
				ShareTokenID: tokenID, UserID: ids.New(), AccessedAt: time.Now().UTC(),
			}).Error).To(Succeed())

			Expect(svc.Delete(ctx, companyID, bob.ID)).To(Succeed())

			var count int64
			Expect(db.Model(&credentialDatamodel.Credential{}).Where("id = ?", credentialID).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
			Expect(db.Model(&credentialDatamodel.ShareToken{}).Where("credential_id = ?", credentialID).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
			Expect(db.Model(&credentialDatamodel.ShareAccess{}).Where("share_token_id = ?", tokenID).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})
	})

	Describe("Invitation", func() {
		var bob *user.User

		BeforeEach(func() {
			bob = createUser("Bob Builder", "bob@acme.io")
		})

		wrongOTP := func(otp string) string {
			if otp == "000000" {
				return "111111"
			}
			return "000000"
		}

		It("emails a code and token, then accepts and sets the password", func() {
			sent, err := svc.Invite(ctx, companyID, bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sent.Email).To(Equal("bob@acme.io"))
			Expect(mailer.sent).To(HaveLen(1))

			inv := mailer.sent[0]
			Expect(inv.OTP).To(MatchRegexp(`^\d{6}$`))
			Expect(inv.Token).To(HaveLen(64))
			Expect(inv.CompanyName).To(Equal("Acme"))

			_, err = svc.AcceptInvitation(ctx, user.AcceptInvitationDTO{Token: inv.Token, OTP: wrongOTP(inv.OTP)})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeInvitationInvalid))

			accepted, err := svc.AcceptInvitation(ctx, user.AcceptInvitationDTO{Token: inv.Token, OTP: inv.OTP})
			Expect(err).NotTo(HaveOccurred())
			Expect(accepted.IsAccepted).To(BeTrue())

			Expect(svc.CreatePassword(ctx, user.CreatePasswordDTO{Token: inv.Token, Password: "brand-new"})).To(Succeed())

			var row userDatamodel.User
			Expect(db.Where("id = ?", bob.ID).First(&row).Error).To(Succeed())
			Expect(bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte("brand-new"))).To(Succeed())
			Expect(row.InvitationToken).To(BeNil())

			err = svc.CreatePassword(ctx, user.CreatePasswordDTO{Token: inv.Token, Password: "again123"})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeInvitationInvalid))
		})

		It("refuses a password before the code is accepted", func() {
			_, err := svc.Invite(ctx, companyID, bob.ID)
			Expect(err).NotTo(HaveOccurred())

			err = svc.CreatePassword(ctx, user.CreatePasswordDTO{Token: mailer.sent[0].Token, Password: "brand-new"})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeInvitationInvalid))
		})

		It("rejects an expired invitation", func() {
			_, err := svc.Invite(ctx, companyID, bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Model(&userDatamodel.User{}).Where("id = ?", bob.ID).
				Update("invitation_token_expiry", time.Now().UTC().Add(-time.Minute)).Error).To(Succeed())

			inv := mailer.sent[0]
			_, err = svc.AcceptInvitation(ctx, user.AcceptInvitationDTO{Token: inv.Token, OTP: inv.OTP})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeInvitationInvalid))
		})

		It("fails the invite when the email cannot be sent", func() {
			mailer.err = errors.New("smtp down")
			_, err := svc.Invite(ctx, companyID, bob.ID)
			Expect(codeOf(err)).To(Equal(internal.ErrCodeNotificationFailed))
		})
	})
})
