package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/dedup"
	"github.com/GriffinCanCode/FitOS/backend/internal/domain/degrade"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/probe"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

// Version reported by the service info endpoint
const Version = "0.3.0"

// Handlers contains all HTTP handlers for the management API
type Handlers struct {
	manager   *degrade.Manager
	coalescer *dedup.Coalescer
	breakers  *resilience.Registry
	prober    *probe.Prober
	metrics   *monitoring.Metrics
	track     *HandlerMetrics
	log       *logging.Logger
	started   time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(manager *degrade.Manager, coalescer *dedup.Coalescer, breakers *resilience.Registry) *Handlers {
	return &Handlers{
		manager:   manager,
		coalescer: coalescer,
		breakers:  breakers,
		track:     NewHandlerMetrics(nil),
		started:   time.Now(),
	}
}

// WithProber enables the immediate-probe endpoint
func (h *Handlers) WithProber(p *probe.Prober) *Handlers {
	h.prober = p
	return h
}

// WithMetrics enables the JSON metrics endpoint and per-operation
// latency tracking
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	h.track = NewHandlerMetrics(metrics)
	return h
}

// WithLogger enables the log level management endpoints
func (h *Handlers) WithLogger(log *logging.Logger) *Handlers {
	h.log = log
	return h
}

// Root handles the service info endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "FitOS Resilience Service (Go)",
		"version": Version,
	})
}

// Health reports aggregate health: the worst health level across the
// registered dependencies decides the overall status
func (h *Handlers) Health(c *gin.Context) {
	names := h.manager.Dependencies()
	worst := types.HealthHealthy
	health := make(map[string]types.Health, len(names))
	for _, name := range names {
		hv := h.manager.Health(name)
		health[name] = hv
		if hv.Level() > worst.Level() {
			worst = hv
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         worst,
		"dependencies":   health,
		"pending":        h.coalescer.Pending(),
		"uptime_seconds": time.Since(h.started).Seconds(),
	})
}

// MetricsJSON exposes current metric values for dashboards that cannot
// scrape Prometheus
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "metrics collection disabled",
		})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
