package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/internal/core/metrics"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.New()
	})

	scrape := func() string {
		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		return rec.Body.String()
	}

	It("labels HTTP requests by route pattern", func() {
		r := chi.NewRouter()
		r.Use(m.Instrument)
		r.Get("/credentials/access/{shareToken}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/credentials/access/deadbeef", nil))

		body := scrape()
		Expect(body).To(ContainSubstring(`route="/credentials/access/{shareToken}"`))
		Expect(body).To(ContainSubstring(`status="404"`))
		Expect(body).NotTo(ContainSubstring("deadbeef"))
	})

	It("counts share lifecycle events", func() {
		bus := events.NewEventBus(logger.Discard())
		m.Subscribe(bus)

		ctx := context.Background()
		Expect(bus.PublishSync(ctx, events.NewCredentialSharedEvent("c", "t", "o", events.TargetDepartment, 3, 2, false))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewShareRedeemedEvent("t", "c", "u", events.TargetDepartment, 1, 3))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewShareConsumedEvent("t", "c", events.TargetDepartment))).To(Succeed())
		m.ObserveReaped(4)

		body := scrape()
		Expect(body).To(ContainSubstring(`credential_vault_shares_issued_total{reissued="false",target="department"} 1`))
		Expect(body).To(ContainSubstring(`credential_vault_share_notification_failures_total{target="department"} 1`))
		Expect(body).To(ContainSubstring(`credential_vault_share_redemptions_total{target="department"} 1`))
		Expect(body).To(ContainSubstring(`credential_vault_shares_consumed_total{target="department"} 1`))
		Expect(body).To(ContainSubstring(`credential_vault_share_tokens_reaped_total 4`))
	})
})
