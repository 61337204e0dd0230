package http

import (
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
)

// HandlerMetrics times management operations. Handlers capture the
// closure before acting and invoke it on the success path.
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper; nil disables recording
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// RegistryOperation times dependency registry operations
func (hm *HandlerMetrics) RegistryOperation(dependency, operation string) func() {
	start := time.Now()
	return func() {
		if hm.metrics == nil {
			return
		}
		hm.metrics.RecordDependencyCall(dependency, operation, "success", time.Since(start))
	}
}

// DedupOperation times coalescer management operations. They are
// recorded under the reserved "coalescer" dependency label.
func (hm *HandlerMetrics) DedupOperation(operation string) func() {
	start := time.Now()
	return func() {
		if hm.metrics == nil {
			return
		}
		hm.metrics.RecordDependencyCall("coalescer", operation, "success", time.Since(start))
	}
}
