package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.CheckedOut()
	m.CheckedOut()
	m.Returned("good")
	m.ReportGenerated("inventory")
	m.Backup(nil)
	m.Backup(errors.New("disk full"))
	m.JobRun("overdue-sweep", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.returns.WithLabelValues("good")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsGenerated.WithLabelValues("inventory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backups.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scheduledJobs.WithLabelValues("overdue-sweep", "ok")))
}

func TestHandlerExposesRequests(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "GET /tools", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `toolkeepr_http_requests_total{method="GET",route="GET /tools",status="200"} 1`)
	assert.Contains(t, string(body), "toolkeepr_http_request_duration_seconds_bucket")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CheckedOut()
		m.Returned("good")
		m.ObserveRequest("GET", "/", 200, time.Second)
		m.JobRun("x", nil)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
