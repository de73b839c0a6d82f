package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"broadcasts_total":               GetBroadcasts(),
		"broadcast_fails_total":          GetBroadcastFails(),
		"active_connections":             GetActiveConnections(),
		"checkouts_total":                GetCheckouts(),
		"recommendations_total":          GetRecommendations(),
		"recommendation_fallbacks_total": GetRecommendationFallbacks(),
		"rate_limited_total":             GetRateLimited(),
		"uptime_seconds":                 int64(GetUptime().Seconds()),
		"http":                           GetRequestMetrics(),
	})
}
