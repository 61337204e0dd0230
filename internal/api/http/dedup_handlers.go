package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DedupMetrics reports coalescer counters and the live pending count
func (h *Handlers) DedupMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metrics": h.coalescer.Metrics(),
	})
}

// CancelRequest cancels one in-flight coalesced request by key. Every
// waiter on the key observes the cancellation.
func (h *Handlers) CancelRequest(c *gin.Context) {
	key := c.Param("key")

	done := h.track.DedupOperation("cancel")
	if !h.coalescer.Cancel(key) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "no pending request: " + key,
		})
		return
	}

	done()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
	})
}

// CancelAllRequests cancels every in-flight coalesced request, for
// load shedding and shutdown
func (h *Handlers) CancelAllRequests(c *gin.Context) {
	done := h.track.DedupOperation("cancel_all")
	cancelled := h.coalescer.CancelAll()

	done()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cancelled": cancelled,
	})
}
