// Package metrics holds the process's prometheus collectors and the HTTP
// instrumentation middleware.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for one server instance.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	AuthFailures  prometheus.Counter
	FetchErrors   prometheus.Counter
}

// New creates the collectors and registers them with the registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supadav_requests_total",
			Help: "DAV requests handled, by method and status code.",
		}, []string{"method", "code"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supadav_auth_failures_total",
			Help: "Requests rejected by the authentication middleware.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supadav_fetch_errors_total",
			Help: "Failed contact fetches from the remote store.",
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.AuthFailures, m.FetchErrors)
	return m
}

// statusRecorder captures the status code written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps a handler, counting every request by method and status.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
