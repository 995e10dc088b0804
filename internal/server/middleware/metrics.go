package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "authcrud"

// Metrics holds the Prometheus collectors of the HTTP layer.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthOutcomesTotal   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_operations_total",
				Help:      "Session operations by outcome",
			},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(m.HTTPRequestsTotal, m.HTTPRequestDuration, m.AuthOutcomesTotal)
	return m
}

// Instrument is a mux middleware; the route label is the matched path
// template so ids do not blow up cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAuth counts login, refresh and logout outcomes. Failures are
// labelled with their error code.
func (m *Metrics) ObserveAuth(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = httpx.ProblemFor(err).Code
	}
	m.AuthOutcomesTotal.WithLabelValues(op, outcome).Inc()
}
