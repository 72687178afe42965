package department_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/department"
	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// stubService records the company each call was scoped to.
type stubService struct {
	scopedTo string
	failWith error
}

func (s *stubService) Create(_ context.Context, companyID, _ string, dto department.CreateDepartmentDTO) (*department.Department, error) {
	s.scopedTo = companyID
	if s.failWith != nil {
		return nil, s.failWith
	}
	return &department.Department{ID: ids.New(), Name: dto.Name, CompanyID: companyID}, nil
}

func (s *stubService) List(_ context.Context, companyID string) ([]*department.Department, error) {
	s.scopedTo = companyID
	return []*department.Department{}, s.failWith
}

func (s *stubService) Get(_ context.Context, companyID, _ string) (*department.Department, error) {
	s.scopedTo = companyID
	return nil, s.failWith
}

func (s *stubService) Update(_ context.Context, companyID, _ string, _ department.UpdateDepartmentDTO) (*department.Department, error) {
	s.scopedTo = companyID
	return nil, s.failWith
}

func (s *stubService) Delete(_ context.Context, companyID, _ string) error {
	s.scopedTo = companyID
	return s.failWith
}

func (s *stubService) Members(_ context.Context, companyID, _ string) ([]department.Member, error) {
	s.scopedTo = companyID
	return nil, s.failWith
}

var _ = Describe("Department Handler", func() {
	var (
		stub      *stubService
		router    *chi.Mux
		principal *internal.Principal
	)

	BeforeEach(func() {
		stub = &stubService{}
		principal = &internal.Principal{UserID: ids.New(), CompanyID: ids.New()}
		h := department.NewHandler(transport.NewBaseHandler(logger.Discard()), stub)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithPrincipal(r.Context(), principal)))
			})
		})
		router.Post("/departments", h.CreateDepartment)
		router.Get("/departments/{id}", h.GetDepartment)
	})

	It("scopes to the caller's company and ignores ?company", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/departments?company="+ids.New(), strings.NewReader(`{"name":"Engineering"}`))
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(stub.scopedTo).To(Equal(principal.CompanyID))

		var body transport.Envelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Success).To(BeTrue())
		Expect(body.Message).To(Equal("Department created successfully"))
	})

	It("requires a company for platform callers", func() {
		principal.CompanyID = ""
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/departments", strings.NewReader(`{"name":"Engineering"}`)))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("Company is required"))
	})

	It("lets platform callers name the company", func() {
		principal.CompanyID = ""
		target := ids.New()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/departments?company="+target, strings.NewReader(`{"name":"Engineering"}`)))

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(stub.scopedTo).To(Equal(target))
	})

	It("rejects unknown body fields", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/departments", strings.NewReader(`{"name":"Eng","company":"x"}`)))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("renders not found through the envelope", func() {
		stub.failWith = internal.NewNotFoundError("Department not found", internal.ErrCodeDepartmentNotFound)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/departments/"+ids.New(), nil))

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["success"]).To(BeFalse())
		Expect(body["error"]).To(HaveKeyWithValue("code", "DEPARTMENT_NOT_FOUND"))
	})
})
