package monitoring

import "time"

// MetricsSnapshot holds current metric values for the JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	AvgDurationMS     float64 `json:"avg_duration_ms"`
	P50DurationMS     float64 `json:"p50_duration_ms"`
	P95DurationMS     float64 `json:"p95_duration_ms"`
	P99DurationMS     float64 `json:"p99_duration_ms"`
	ActiveConnections int64   `json:"active_connections"`
	PendingRequests   int64   `json:"pending_requests"`
	CacheSize         int64   `json:"cache_size"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	snap := MetricsSnapshot{
		TotalRequests:     s.TotalRequests,
		TotalErrors:       s.TotalErrors,
		ActiveConnections: s.ActiveConnections,
		PendingRequests:   s.PendingRequests,
		CacheSize:         s.CacheSize,
		UptimeSeconds:     time.Since(m.startTime).Seconds(),
	}
	if s.RequestCount > 0 {
		snap.AvgDurationMS = s.TotalDuration / float64(s.RequestCount) * 1000
	}

	qs := m.latency.quantiles(0.50, 0.95, 0.99)
	snap.P50DurationMS = qs[0] * 1000
	snap.P95DurationMS = qs[1] * 1000
	snap.P99DurationMS = qs[2] * 1000
	return snap
}
