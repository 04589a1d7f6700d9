package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the storefront collectors. It implements ledger.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	stockEvents  *prometheus.CounterVec
	reservations *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the storefront collectors on reg. A nil reg uses a fresh
// registry, which keeps tests independent of each other.
func New(namespace string, reg *prometheus.Registry) (*Metrics, error) {
	if namespace == "" {
		namespace = "storefront"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		stockEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_events_total",
			Help:      "Stock events appended to the ledger, by type.",
		}, []string{"type"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservations_total",
			Help:      "Reservation attempts, by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	for _, c := range []prometheus.Collector{m.stockEvents, m.reservations, m.httpRequests, m.httpDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// EventRecorded counts an appended stock event
func (m *Metrics) EventRecorded(t domain.StockEventType) {
	m.stockEvents.WithLabelValues(string(t)).Inc()
}

// ReservationAttempted counts a reservation outcome
func (m *Metrics) ReservationAttempted(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
