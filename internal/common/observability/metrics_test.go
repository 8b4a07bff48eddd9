package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *metric.ManualReader) map[string]bool {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestRecordRequestAndJobs(t *testing.T) {
	reader := metric.NewManualReader()
	obs := newWithReader("admissions-test", reader)
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordRequest(ctx, http.MethodPost, "/api/v1/applications/status", http.StatusOK, 12*time.Millisecond)
	obs.RecordJobProcessed(ctx, "update-application-status", "completed")
	obs.RecordJobDuration(ctx, "update-application-status", 40*time.Millisecond, "completed")

	names := collect(t, reader)
	assert.True(t, names["http.server.requests"])
	assert.True(t, names["http.server.duration"])
	assert.True(t, names["jobs.processed"])
	assert.True(t, names["jobs.duration"])
}

func TestZeroValueObservabilityIsSafe(t *testing.T) {
	obs := &Observability{}
	assert.NotPanics(t, func() {
		obs.RecordRequest(context.Background(), http.MethodGet, "/health", 200, time.Millisecond)
		obs.RecordJobProcessed(context.Background(), "x", "failed")
		obs.Shutdown()
	})
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &StatusRecorder{ResponseWriter: rec, Status: http.StatusOK}
	sr.WriteHeader(http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, sr.Status)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
