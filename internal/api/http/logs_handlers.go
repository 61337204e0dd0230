package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetLogLevel reports the current logging level
func (h *Handlers) GetLogLevel(c *gin.Context) {
	if h.log == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "logging not configured",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"level":   h.log.Level(),
	})
}

// SetLogLevel changes the logging level at runtime, for turning on
// debug logging during an incident without a restart
func (h *Handlers) SetLogLevel(c *gin.Context) {
	if h.log == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "logging not configured",
		})
		return
	}

	var req struct {
		Level string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	if err := h.log.SetLevel(req.Level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid level. Must be debug, info, warn, or error",
		})
		return
	}

	h.log.Info("Log level changed", zap.String("level", req.Level))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"level":   req.Level,
	})
}
