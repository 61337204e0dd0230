package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/degrade"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

// ListDependencies lists all registered dependencies with their
// current health
func (h *Handlers) ListDependencies(c *gin.Context) {
	names := h.manager.Dependencies()

	deps := make([]gin.H, 0, len(names))
	for _, name := range names {
		cfg, ok := h.manager.Config(name)
		if !ok {
			// Torn down between listing and lookup
			continue
		}
		health, reason := h.manager.HealthDetail(name)
		entry := gin.H{
			"name":     name,
			"strategy": cfg.Strategy,
			"health":   health,
			"reason":   reason,
		}
		if cfg.Strategy == types.StrategyQueue {
			entry["queue_depth"] = h.manager.QueueDepth(name)
		}
		deps = append(deps, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"dependencies": deps,
		"count":        len(deps),
	})
}

// RegisterDependency registers a new dependency at runtime
func (h *Handlers) RegisterDependency(c *gin.Context) {
	var cfg types.DependencyConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	if cfg.Probe != nil {
		if cfg.Probe.Kind != types.ProbeHTTP && cfg.Probe.Kind != types.ProbeGRPC {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid probe kind. Must be http or grpc",
			})
			return
		}
		if cfg.Probe.Target == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Probe target is required",
			})
			return
		}
	}

	done := h.track.RegistryOperation(cfg.Name, "register")
	if err := h.manager.Register(cfg); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, degrade.ErrAlreadyRegistered) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if h.prober != nil && cfg.Probe != nil {
		h.prober.Kick(cfg.Name)
	}

	regID, _ := h.manager.RegistrationID(cfg.Name)
	done()
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"name":         cfg.Name,
		"registration": regID,
		"strategy":     cfg.Strategy,
	})
}

// GetDependency returns the full view of one dependency: config,
// registration identity, derived health, breaker state and queue
func (h *Handlers) GetDependency(c *gin.Context) {
	name := c.Param("name")

	cfg, ok := h.manager.Config(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "dependency not registered: " + name,
		})
		return
	}

	health, reason := h.manager.HealthDetail(name)
	regID, _ := h.manager.RegistrationID(name)

	payload := gin.H{
		"name":         name,
		"registration": regID,
		"config":       cfg,
		"health":       health,
		"reason":       reason,
		"breaker":      h.breakers.Stats(name),
	}
	if override, set := h.manager.Override(name); set {
		payload["override"] = override
	}
	if cfg.Strategy == types.StrategyQueue {
		payload["queue"] = gin.H{
			"depth": h.manager.QueueDepth(name),
			"items": h.manager.QueuedItems(name),
		}
	}

	c.JSON(http.StatusOK, payload)
}

// TeardownDependency removes a dependency and rejects its queued calls
func (h *Handlers) TeardownDependency(c *gin.Context) {
	name := c.Param("name")

	done := h.track.RegistryOperation(name, "teardown")
	if err := h.manager.Teardown(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, degrade.ErrNotRegistered) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	done()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"name":    name,
		"message": "Dependency torn down",
	})
}

// SetDependencyHealth pins a dependency's health manually
func (h *Handlers) SetDependencyHealth(c *gin.Context) {
	name := c.Param("name")

	var req struct {
		Health string `json:"health" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	health := types.Health(req.Health)
	if !health.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid health. Must be healthy, degraded, or unhealthy",
		})
		return
	}

	done := h.track.RegistryOperation(name, "set_health")
	if err := h.manager.SetHealth(name, health); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, degrade.ErrNotRegistered) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	done()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"name":    name,
		"health":  health,
	})
}

// ClearDependencyHealth removes a manual health override
func (h *Handlers) ClearDependencyHealth(c *gin.Context) {
	name := c.Param("name")

	done := h.track.RegistryOperation(name, "clear_health")
	if err := h.manager.ClearHealth(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	done()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"name":    name,
		"health":  h.manager.Health(name),
	})
}

// DrainDependencyQueue drains a dependency's queue on demand
func (h *Handlers) DrainDependencyQueue(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	done := h.track.RegistryOperation(name, "drain")
	drained, err := h.manager.DrainQueue(ctx, name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, degrade.ErrNotRegistered) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
			"drained": drained,
		})
		return
	}

	done()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"name":    name,
		"drained": drained,
	})
}

// CheckDependency schedules an immediate probe for a dependency
func (h *Handlers) CheckDependency(c *gin.Context) {
	name := c.Param("name")

	if h.prober == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "prober disabled",
		})
		return
	}

	cfg, ok := h.manager.Config(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "dependency not registered: " + name,
		})
		return
	}
	if cfg.Probe == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no probe configured for: " + name,
		})
		return
	}

	h.prober.Kick(name)
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"name":    name,
		"message": "Probe scheduled",
	})
}
