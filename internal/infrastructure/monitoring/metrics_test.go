package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prometheus collectors register globally, so every test shares one
// instance
var testMetrics = NewMetrics()

func TestSnapshotAccumulatesRequests(t *testing.T) {
	before := testMetrics.GetSnapshot()

	testMetrics.RecordHTTPRequest("GET", "/health", "200", 10*time.Millisecond, 0, 64)
	testMetrics.RecordHTTPRequest("POST", "/execute", "500", 30*time.Millisecond, 128, 32)

	after := testMetrics.GetSnapshot()
	assert.Equal(t, before.TotalRequests+2, after.TotalRequests)
	assert.Equal(t, before.TotalErrors+1, after.TotalErrors)
	assert.Greater(t, after.AvgDurationMS, 0.0)
	assert.Greater(t, after.UptimeSeconds, 0.0)
}

func TestSnapshotGauges(t *testing.T) {
	testMetrics.SetPendingRequests(7)
	testMetrics.SetCacheSize(12)
	testMetrics.IncWSConnections()

	snap := testMetrics.GetSnapshot()
	assert.EqualValues(t, 7, snap.PendingRequests)
	assert.EqualValues(t, 12, snap.CacheSize)
	assert.GreaterOrEqual(t, snap.ActiveConnections, int64(1))

	testMetrics.DecWSConnections()
	testMetrics.SetPendingRequests(0)
}

func TestLatencyWindowQuantiles(t *testing.T) {
	w := newLatencyWindow(100)
	for i := 1; i <= 100; i++ {
		w.record(float64(i) / 1000) // 1ms .. 100ms
	}

	qs := w.quantiles(0.50, 0.95, 0.99)
	require.Len(t, qs, 3)
	assert.InDelta(t, 0.050, qs[0], 0.002)
	assert.InDelta(t, 0.095, qs[1], 0.002)
	assert.InDelta(t, 0.099, qs[2], 0.002)
}

func TestLatencyWindowEmpty(t *testing.T) {
	w := newLatencyWindow(16)
	qs := w.quantiles(0.50, 0.99)
	assert.Equal(t, []float64{0, 0}, qs)
}

func TestLatencyWindowWrapsAround(t *testing.T) {
	w := newLatencyWindow(4)
	for _, v := range []float64{10, 10, 10, 10} {
		w.record(v)
	}
	// Overwrite the whole window with smaller samples
	for _, v := range []float64{1, 2, 3, 4} {
		w.record(v)
	}

	qs := w.quantiles(0.99)
	assert.LessOrEqual(t, qs[0], 4.0, "stale samples must age out")
}

func TestProbeOutcomeLabels(t *testing.T) {
	// Exercise both label paths; the assertion is that neither panics
	// on first use of the label set
	testMetrics.RecordProbe("pricing", "http", true)
	testMetrics.RecordProbe("pricing", "http", false)
	testMetrics.RecordFallback("pricing", "default-response", "served")
	testMetrics.RecordDependencyCall("pricing", "probe", "success", 5*time.Millisecond)
	testMetrics.SetDependencyHealth("pricing", 1)
	testMetrics.SetQueueDepth("analytics", 3)
}
