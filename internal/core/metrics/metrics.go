// Package metrics exposes Prometheus instruments for HTTP traffic and the share lifecycle.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "credential_vault"

type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	sharesIssued   *prometheus.CounterVec
	notifyFailures *prometheus.CounterVec
	redemptions    *prometheus.CounterVec
	consumed       *prometheus.CounterVec
	reaped         prometheus.Counter
}

// New builds the instruments on a private registry along with Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		sharesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_issued_total",
			Help:      "Share operations by target kind and whether a live token was re-sent.",
		}, []string{"target", "reissued"}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_notification_failures_total",
			Help:      "Share notifications that could not be delivered.",
		}, []string{"target"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_redemptions_total",
			Help:      "Successful share token redemptions.",
		}, []string{"target"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_consumed_total",
			Help:      "Share tokens that reached the accessed state.",
		}, []string{"target"}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_tokens_reaped_total",
			Help:      "Expired share tokens removed by the reaper.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.sharesIssued, m.notifyFailures, m.redemptions, m.consumed, m.reaped,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument labels requests by route pattern, never by raw path, so share tokens stay out of
// the label set.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// ObserveReaped is called by the reaper after every sweep.
func (m *Metrics) ObserveReaped(n int) {
	if n > 0 {
		m.reaped.Add(float64(n))
	}
}

// Subscribe counts share lifecycle events.
func (m *Metrics) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeCredentialShared, func(_ context.Context, e events.Event) error {
		shared, ok := e.(*events.CredentialSharedEvent)
		if !ok {
			return nil
		}
		m.sharesIssued.WithLabelValues(shared.Target, strconv.FormatBool(shared.Reissued)).Inc()
		if failed := shared.Recipients - shared.Notified; failed > 0 {
			m.notifyFailures.WithLabelValues(shared.Target).Add(float64(failed))
		}
		return nil
	})
	bus.Subscribe(events.EventTypeShareRedeemed, func(_ context.Context, e events.Event) error {
		if redeemed, ok := e.(*events.ShareRedeemedEvent); ok {
			m.redemptions.WithLabelValues(redeemed.Target).Inc()
		}
		return nil
	})
	bus.Subscribe(events.EventTypeShareConsumed, func(_ context.Context, e events.Event) error {
		if consumed, ok := e.(*events.ShareConsumedEvent); ok {
			m.consumed.WithLabelValues(consumed.Target).Inc()
		}
		return nil
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
