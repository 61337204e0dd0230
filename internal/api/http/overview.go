package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/dedup"
	"github.com/GriffinCanCode/FitOS/backend/internal/domain/degrade"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

// Overview aggregates the live state of every subsystem into a single
// snapshot for operators
type Overview struct {
	manager   *degrade.Manager
	coalescer *dedup.Coalescer
	breakers  *resilience.Registry
	metrics   *monitoring.Metrics
}

// NewOverview creates an overview aggregator
func NewOverview(manager *degrade.Manager, coalescer *dedup.Coalescer, breakers *resilience.Registry, metrics *monitoring.Metrics) *Overview {
	return &Overview{
		manager:   manager,
		coalescer: coalescer,
		breakers:  breakers,
		metrics:   metrics,
	}
}

// OverviewSnapshot is the full system view at one instant
type OverviewSnapshot struct {
	Timestamp    time.Time            `json:"timestamp"`
	Status       types.Health         `json:"status"`
	Dependencies []DependencyOverview `json:"dependencies"`
	Dedup        dedup.Metrics        `json:"dedup"`
	Summary      OverviewSummary      `json:"summary"`
}

// DependencyOverview is one dependency's row in the snapshot
type DependencyOverview struct {
	Name       string           `json:"name"`
	Strategy   types.Strategy   `json:"strategy"`
	Health     types.Health     `json:"health"`
	Reason     string           `json:"reason"`
	Breaker    resilience.Stats `json:"breaker"`
	QueueDepth int              `json:"queue_depth,omitempty"`
}

// OverviewSummary provides high-level request metrics
type OverviewSummary struct {
	TotalRequests    int64   `json:"total_requests"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
	PendingRequests  int     `json:"pending_requests"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// Snapshot assembles the current system view
func (o *Overview) Snapshot() OverviewSnapshot {
	names := o.manager.Dependencies()
	worst := types.HealthHealthy
	deps := make([]DependencyOverview, 0, len(names))
	for _, name := range names {
		cfg, ok := o.manager.Config(name)
		if !ok {
			continue
		}
		health, reason := o.manager.HealthDetail(name)
		if health.Level() > worst.Level() {
			worst = health
		}
		row := DependencyOverview{
			Name:     name,
			Strategy: cfg.Strategy,
			Health:   health,
			Reason:   reason,
			Breaker:  o.breakers.Stats(name),
		}
		if cfg.Strategy == types.StrategyQueue {
			row.QueueDepth = o.manager.QueueDepth(name)
		}
		deps = append(deps, row)
	}

	return OverviewSnapshot{
		Timestamp:    time.Now(),
		Status:       worst,
		Dependencies: deps,
		Dedup:        o.coalescer.Metrics(),
		Summary:      o.summary(),
	}
}

// summary computes high-level request metrics from the collector
func (o *Overview) summary() OverviewSummary {
	s := OverviewSummary{PendingRequests: o.coalescer.Pending()}
	if o.metrics == nil {
		return s
	}

	snap := o.metrics.GetSnapshot()
	s.TotalRequests = snap.TotalRequests
	s.AverageLatencyMs = snap.AvgDurationMS
	s.UptimeSeconds = snap.UptimeSeconds
	if snap.TotalRequests > 0 {
		s.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}
	return s
}

// GetOverview returns the aggregated system snapshot
func (o *Overview) GetOverview(c *gin.Context) {
	c.JSON(http.StatusOK, o.Snapshot())
}

// GetDashboard returns a self-contained HTML dashboard that polls the
// overview endpoint
func (o *Overview) GetDashboard(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, dashboardHTML)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FitOS Resilience Dashboard</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
            background: #0d1117;
            color: #d0d7de;
            padding: 24px;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { font-size: 1.6rem; margin-bottom: 6px; color: #58a6ff; }
        .subtitle { color: #7d8590; margin-bottom: 24px; }
        .links { margin-bottom: 20px; }
        .links a {
            display: inline-block;
            margin-right: 10px;
            padding: 6px 14px;
            background: #161b22;
            color: #58a6ff;
            text-decoration: none;
            border: 1px solid #30363d;
            border-radius: 6px;
            font-size: 0.85rem;
        }
        .links a:hover { border-color: #58a6ff; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(320px, 1fr));
            gap: 16px;
        }
        .card {
            background: #161b22;
            border: 1px solid #30363d;
            border-radius: 10px;
            padding: 18px;
        }
        .card h2 { font-size: 1rem; margin-bottom: 12px; color: #58a6ff; }
        .row {
            display: flex;
            justify-content: space-between;
            padding: 7px 0;
            border-bottom: 1px solid #21262d;
            font-size: 0.9rem;
        }
        .row:last-child { border-bottom: none; }
        .label { color: #7d8590; }
        .value { font-family: 'SF Mono', 'Courier New', monospace; }
        .healthy { color: #3fb950; }
        .degraded { color: #d29922; }
        .unhealthy { color: #f85149; }
        .timestamp { color: #7d8590; text-align: center; margin-top: 18px; font-size: 0.8rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>FitOS Resilience Dashboard</h1>
        <p class="subtitle">Dependency health, circuit breakers, and request coalescing</p>

        <div class="links">
            <a href="/metrics">Prometheus</a>
            <a href="/metrics/json">Metrics JSON</a>
            <a href="/overview">Overview JSON</a>
            <a href="/health">Health</a>
        </div>

        <div id="content"><p class="subtitle">Loading...</p></div>
        <p class="timestamp" id="timestamp"></p>
    </div>

    <script>
        function fmt(v) {
            if (typeof v !== 'number') return v;
            if (v >= 1000000) return (v / 1000000).toFixed(1) + 'M';
            if (v >= 1000) return (v / 1000).toFixed(1) + 'K';
            return Number.isInteger(v) ? v : v.toFixed(2);
        }

        function row(label, value, cls) {
            return '<div class="row"><span class="label">' + label +
                '</span><span class="value ' + (cls || '') + '">' + value + '</span></div>';
        }

        function render(data) {
            var s = data.summary || {};
            var d = data.dedup || {};
            var html = '<div class="grid">';

            html += '<div class="card"><h2>Summary</h2>';
            html += row('Overall Status', data.status, data.status);
            html += row('Total Requests', fmt(s.total_requests || 0));
            html += row('Avg Latency', fmt(s.average_latency_ms || 0) + ' ms',
                s.average_latency_ms > 1000 ? 'unhealthy' : 'healthy');
            html += row('Error Rate', ((s.error_rate || 0) * 100).toFixed(2) + '%',
                s.error_rate > 0.01 ? 'unhealthy' : 'healthy');
            html += row('Uptime', fmt(s.uptime_seconds || 0) + ' s');
            html += '</div>';

            html += '<div class="card"><h2>Request Coalescing</h2>';
            html += row('Total', fmt(d.total_requests || 0));
            html += row('Deduplicated', fmt(d.deduplicated_requests || 0));
            html += row('Dedup Rate', (d.deduplication_rate || 0).toFixed(1) + '%');
            html += row('Pending', fmt(d.pending_requests || 0));
            html += row('Timeouts', fmt(d.timeouts || 0), d.timeouts > 0 ? 'degraded' : '');
            html += row('Cancellations', fmt(d.cancellations || 0));
            html += '</div>';

            html += '<div class="card"><h2>Dependencies</h2>';
            var deps = data.dependencies || [];
            if (deps.length === 0) {
                html += row('Registered', 'none');
            }
            deps.forEach(function (dep) {
                var detail = dep.health + ' (' + dep.breaker.state + ')';
                if (dep.queue_depth) detail += ' q=' + dep.queue_depth;
                html += row(dep.name, detail, dep.health);
            });
            html += '</div>';

            html += '</div>';
            document.getElementById('content').innerHTML = html;
            document.getElementById('timestamp').textContent =
                'Last updated: ' + new Date(data.timestamp).toLocaleString();
        }

        function load() {
            fetch('/overview')
                .then(function (r) { return r.json(); })
                .then(render)
                .catch(function () {
                    document.getElementById('content').innerHTML =
                        '<p class="unhealthy">Failed to load overview</p>';
                });
        }

        load();
        setInterval(load, 5000);
    </script>
</body>
</html>`
