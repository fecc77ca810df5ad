package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	assert.Same(t, registry, m.Registry())
	assert.NotNil(t, m.APIRequestsTotal)
	assert.NotNil(t, m.RowResultsTotal)

	// A second registration on the same registry must panic
	assert.Panics(t, func() { NewMetrics(registry) })
}

func TestMetrics_ObserveAPICall(t *testing.T) {
	m := NewMetrics(nil)

	m.ObserveAPICall("CreateUser", 201, 15*time.Millisecond)
	m.ObserveAPICall("CreateUser", 201, 10*time.Millisecond)
	m.ObserveAPICall("CreateUser", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("CreateUser", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("CreateUser", "error")))
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordResult("OK")
	m.RecordResult("OK")
	m.RecordResult("SKIP")
	m.RecordUserCreated()
	m.RecordProjectCreated()
	finished := time.Unix(1700000000, 0)
	m.RecordRun(2*time.Second, finished)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowResultsTotal.WithLabelValues("OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowResultsTotal.WithLabelValues("SKIP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProjectsCreatedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunDurationSeconds))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRunTimestamp))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPICall("SearchUsers", 200, time.Millisecond)
		m.RecordResult("OK")
		m.RecordUserCreated()
		m.RecordProjectCreated()
		m.RecordRun(time.Second, time.Now())
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordResult("WARN")

	path := filepath.Join(t.TempDir(), "harbor_usertools.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `harbor_usertools_row_results_total{status="WARN"} 1`)
}
