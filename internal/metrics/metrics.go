// Package metrics holds the Prometheus collectors exposed at /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	checkouts        prometheus.Counter
	returns          *prometheus.CounterVec
	reportsGenerated *prometheus.CounterVec
	backups          *prometheus.CounterVec
	scheduledJobs    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolkeepr", Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "toolkeepr", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toolkeepr", Name: "checkouts_total",
			Help: "Tools checked out.",
		}),
		returns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolkeepr", Name: "returns_total",
			Help: "Tools returned, by return condition.",
		}, []string{"condition"}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolkeepr", Name: "reports_generated_total",
			Help: "Reports generated, by report type.",
		}, []string{"type"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolkeepr", Name: "backups_total",
			Help: "Settings backups written, by result.",
		}, []string{"result"}),
		scheduledJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolkeepr", Name: "scheduled_jobs_total",
			Help: "Scheduled job runs, by job and result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(
		m.requests, m.requestDuration, m.checkouts, m.returns, m.reportsGenerated, m.backups, m.scheduledJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) CheckedOut() {
	if m == nil {
		return
	}
	m.checkouts.Inc()
}

func (m *Metrics) Returned(condition string) {
	if m == nil {
		return
	}
	m.returns.WithLabelValues(condition).Inc()
}

func (m *Metrics) ReportGenerated(reportType string) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(reportType).Inc()
}

func (m *Metrics) Backup(err error) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	m.scheduledJobs.WithLabelValues(job, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
