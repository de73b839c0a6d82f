package recommendation

import (
	"net/http"
	"strconv"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Recommendations(c *gin.Context) {
	res, err := h.service.ForUser(c.Request.Context(), c.GetString("user_id"), c.Query("mood"), c.Query("context"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MoodRecommendations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil {
		apierr.Respond(c, apierr.Validation("Limit must be a number"))
		return
	}
	res, err := h.service.ForMood(c.Request.Context(), c.Query("mood"), limit)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
