package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/service"
	"irecStatApp/internal/infrastructure/metrics"
)

var _ service.Recorder = (*metrics.Metrics)(nil)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.CacheHit(model.DatasetAnalytics)
	m.CacheHit(model.DatasetAnalytics)
	m.CacheMiss(model.DatasetAnalytics)
	m.ValidationWarning(model.WarnDegradedInput)
	m.EventsSynthesized(model.EventRetirement, 12)
	m.EventsSynthesized(model.EventRetirement, 0)
	m.ObserveCompute(model.DatasetSupply, 3*time.Millisecond)
	m.ProjectUpdate("applied")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("analytics", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("analytics", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationWarnings.WithLabelValues(model.WarnDegradedInput)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.SynthesizedEvents.WithLabelValues("retirement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProjectUpdates.WithLabelValues("applied")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ComputeLatency))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.CacheHit(model.DatasetSupply)
		m.ObserveCompute(model.DatasetSupply, time.Second)
		m.ProjectUpdate("rejected")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.CacheMiss(model.DatasetCertificates)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `irec_cache_lookups_total{dataset="certificates",result="miss"} 1`)
}
