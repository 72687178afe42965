package role_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/auth"
	authPostgres "github.com/frahmantamala/credential-vault/internal/auth/postgres"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/core/testdb"
	"github.com/frahmantamala/credential-vault/internal/permission"
	permissionPostgres "github.com/frahmantamala/credential-vault/internal/permission/postgres"
	"github.com/frahmantamala/credential-vault/internal/role"
	rolePostgres "github.com/frahmantamala/credential-vault/internal/role/postgres"
	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Role routes behind the permission gate", func() {
	var (
		router    http.Handler
		roleSvc   *role.Service
		companyID string
		managerID string
		targetID  string
		catalog   map[string]string
	)

	BeforeEach(func() {
		ctx := context.Background()
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		permSvc := permission.NewService(permissionPostgres.NewPermissionRepository(db), logger.Discard())
		_, err = permSvc.Seed(ctx)
		Expect(err).NotTo(HaveOccurred())
		perms, err := permSvc.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		catalog = make(map[string]string, len(perms))
		for _, p := range perms {
			catalog[p.Key] = p.ID
		}

		roleSvc = role.NewService(rolePostgres.NewRoleRepository(db), permSvc, logger.Discard())
		companyID = ids.New()
		actorID := ids.New()

		manager, err := roleSvc.Create(ctx, companyID, actorID, role.CreateRoleDTO{
			Name:          "Manager",
			PermissionIDs: []string{catalog[permission.GetRole]},
		})
		Expect(err).NotTo(HaveOccurred())
		managerID = manager.ID

		target, err := roleSvc.Create(ctx, companyID, actorID, role.CreateRoleDTO{Name: "Temp"})
		Expect(err).NotTo(HaveOccurred())
		targetID = target.ID

		now := time.Now().UTC()
		user := &userDatamodel.User{
			ID: ids.New(), Name: "Dana", Email: "dana@acme.io", CompanyID: &companyID, RoleID: &managerID,
			IsAccepted: true, CreatedAt: now, UpdatedAt: now,
		}
		Expect(db.Create(user).Error).To(Succeed())

		resolver := authPostgres.NewPrincipalResolver(testdb.SQLX(db))
		rbac := auth.NewRBACAuthorization(auth.NewAuthorizer(false), logger.Discard())
		handler := role.NewHandler(transport.NewBaseHandler(logger.Discard()), roleSvc)

		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				p, err := resolver.Resolve(req.Context(), user.ID)
				Expect(err).NotTo(HaveOccurred())
				next.ServeHTTP(w, req.WithContext(internal.ContextWithPrincipal(req.Context(), p)))
			})
		})
		r.With(rbac.Middleware(permission.DeleteRole)).Delete("/roles/{id}", handler.DeleteRole)
		router = r
	})

	It("denies deletion without delete.role and allows it once granted", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/roles/"+targetID, nil))
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		_, err := roleSvc.AssignPermissions(context.Background(), companyID, managerID, role.AssignPermissionsDTO{
			PermissionIDs: []string{catalog[permission.GetRole], catalog[permission.DeleteRole]},
		})
		Expect(err).NotTo(HaveOccurred())

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/roles/"+targetID, nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.Contains(rec.Body.String(), `"success":true`)).To(BeTrue())
	})
})
