package health

import (
	"context"
	"net/http"
	"time"

	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// ConnectionCounter reports live real-time connections.
type ConnectionCounter interface {
	ClientCount() int
}

type Handler struct {
	connections ConnectionCounter
}

func NewHandler(connections ConnectionCounter) *Handler {
	return &Handler{connections: connections}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h *Handler) Readyz(c *gin.Context) {
	if database.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "database_not_initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := database.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "database_ping_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Status is the public /api/health summary.
func (h *Handler) Status(c *gin.Context) {
	resp := gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    int64(metrics.GetUptime().Seconds()),
	}
	if h.connections != nil {
		resp["connections"] = h.connections.ClientCount()
	}
	c.JSON(http.StatusOK, resp)
}
