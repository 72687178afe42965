package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/frahmantamala/credential-vault/internal/transport/middleware"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"success":true,"data":{"password":"hunter22","name":"GitHub"}}`))
})

var _ = Describe("RateLimiter", func() {
	It("allows the burst then answers 429 with Retry-After", func() {
		limiter := middleware.NewRateLimiter(0.5, 2, transport.NewBaseHandler(logger.Discard()))
		h := limiter.Middleware(ok)

		codes := []int{}
		var last *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/credentials/access/x", nil)
			req.RemoteAddr = "198.51.100.7:5000"
			last = httptest.NewRecorder()
			h.ServeHTTP(last, req)
			codes = append(codes, last.Code)
		}
		Expect(codes).To(Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}))
		Expect(last.Header().Get("Retry-After")).To(Equal("2"))

		var env transport.Envelope
		Expect(json.Unmarshal(last.Body.Bytes(), &env)).To(Succeed())
		Expect(env.Error.Code).To(Equal(internal.ErrCodeRateLimited))
	})

	It("keeps a separate bucket per client address", func() {
		limiter := middleware.NewRateLimiter(0.5, 1, transport.NewBaseHandler(logger.Discard()))
		h := limiter.Middleware(ok)

		for _, addr := range []string{"198.51.100.1:1", "198.51.100.2:1"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
		}
	})
})

var _ = Describe("LoggingMiddleware", func() {
	var (
		buf *bytes.Buffer
		h   http.Handler
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		h = middleware.LoggingMiddleware(slog.New(slog.NewJSONHandler(buf, nil)))(ok)
	})

	It("filters share tokens, secrets and auth headers", func() {
		token := strings.Repeat("ab", 32)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials/access/"+token+"?otp=123456&search=git",
			strings.NewReader(`{"email":"bob@acme.io","password":"secret1"}`))
		req.Header.Set("Authorization", "Bearer abc.def.ghi")
		h.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		Expect(out).NotTo(ContainSubstring(token))
		Expect(out).NotTo(ContainSubstring("secret1"))
		Expect(out).NotTo(ContainSubstring("hunter22"))
		Expect(out).NotTo(ContainSubstring("abc.def.ghi"))
		Expect(out).NotTo(ContainSubstring("123456"))
		Expect(out).To(ContainSubstring("/api/v1/credentials/access/[FILTERED]"))
		Expect(out).To(ContainSubstring("bob@acme.io"))
		Expect(out).To(ContainSubstring("search=git"))
	})

	It("keeps the request body readable for the handler", func() {
		var seen string
		echo := middleware.LoggingMiddleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := new(bytes.Buffer)
			_, _ = raw.ReadFrom(r.Body)
			seen = raw.String()
		}))
		echo.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`)))
		Expect(seen).To(Equal(`{"name":"x"}`))
	})
})

var _ = Describe("RequestID", func() {
	It("echoes an incoming trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceHeader, "trace-123")
		rec := httptest.NewRecorder()
		middleware.RequestID(ok).ServeHTTP(rec, req)
		Expect(rec.Header().Get(middleware.TraceHeader)).To(Equal("trace-123"))
	})

	It("mints one when absent and scopes the request logger", func() {
		scoped := false
		h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, scoped = logger.Scoped(r.Context())
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get(middleware.TraceHeader)).To(HaveLen(36))
		Expect(scoped).To(BeTrue())
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a masked internal error", func() {
		h := middleware.RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("sealed secret leaked")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("sealed secret leaked"))
		var env transport.Envelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
		Expect(env.Success).To(BeFalse())
		Expect(env.Error.Type).To(Equal(internal.ErrorTypeInternal))
	})
})

var _ = Describe("CORS", func() {
	It("answers preflight without reaching the handler", func() {
		reached := false
		h := middleware.CORS("https://app.example.com")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
		Expect(reached).To(BeFalse())
	})

	It("does not echo an unknown origin", func() {
		h := middleware.CORS("https://app.example.com")(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})
