package swagger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"

	"github.com/frahmantamala/credential-vault/internal/transport/swagger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func documentPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "api", "openapi.yml")
}

var _ = Describe("OpenAPI document", func() {
	var doc *swagger.Document

	BeforeEach(func() {
		var err error
		doc, err = swagger.Load(context.Background(), documentPath())
		Expect(err).NotTo(HaveOccurred())
	})

	It("is a valid description of the API", func() {
		Expect(doc.Title()).To(Equal("Credential Vault API"))
	})

	DescribeTable("documents every routed operation",
		func(method, path string) {
			Expect(doc.HasOperation(method, path)).To(BeTrue(), "%s %s", method, path)
		},
		Entry("POST /auth/register", http.MethodPost, "/auth/register"),
		Entry("POST /auth/login", http.MethodPost, "/auth/login"),
		Entry("GET /permissions", http.MethodGet, "/permissions"),
		Entry("POST /roles/assign-permission/{id}", http.MethodPost, "/roles/assign-permission/{id}"),
		Entry("GET /departments/{id}/members", http.MethodGet, "/departments/{id}/members"),
		Entry("POST /users/invite/{id}", http.MethodPost, "/users/invite/{id}"),
		Entry("POST /users/accept-invitation", http.MethodPost, "/users/accept-invitation"),
		Entry("DELETE /companies/{id}", http.MethodDelete, "/companies/{id}"),
		Entry("POST /credentials/{id}/share", http.MethodPost, "/credentials/{id}/share"),
		Entry("GET /credentials/{id}/shares", http.MethodGet, "/credentials/{id}/shares"),
		Entry("GET /credentials/access/{shareToken}", http.MethodGet, "/credentials/access/{shareToken}"),
	)

	It("does not describe routes that do not exist", func() {
		Expect(doc.HasOperation(http.MethodPatch, "/credentials/{id}")).To(BeFalse())
		Expect(doc.HasOperation(http.MethodGet, "/invoices")).To(BeFalse())
	})

	It("serves the raw yaml", func() {
		rec := httptest.NewRecorder()
		doc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, swagger.DocumentPath, nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/yaml"))
		Expect(rec.Body.String()).To(HavePrefix("openapi: 3.0.3"))
	})

	It("rejects a document that is not OpenAPI", func() {
		path := filepath.Join(GinkgoT().TempDir(), "broken.yml")
		Expect(os.WriteFile(path, []byte("openapi: 3.0.3\ninfo: {}\npaths:\n  nope: {}\n"), 0o600)).To(Succeed())
		_, err := swagger.Load(context.Background(), path)
		Expect(err).To(HaveOccurred())
	})

	It("reports a missing file", func() {
		_, err := swagger.Load(context.Background(), filepath.Join(GinkgoT().TempDir(), "missing.yml"))
		Expect(err).To(MatchError(ContainSubstring("read openapi document")))
	})
})
