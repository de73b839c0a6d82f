package social

import (
	"net/http"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type listQuery struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=10" binding:"min=1,max=50"`
}

func (h *Handler) ListClubs(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	clubs, total, err := h.service.List(c.Request.Context(), c.GetString("user_id"), q.Page, q.Limit)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookClubs": clubs, "total": total, "page": q.Page, "limit": q.Limit})
}

func (h *Handler) CreateClub(c *gin.Context) {
	var req models.CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	club, err := h.service.Create(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Book club created successfully", "bookClub": club})
}

func (h *Handler) GetClub(c *gin.Context) {
	club, members, err := h.service.Get(c.Request.Context(), c.Param("clubId"), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookClub": club, "members": members})
}

func (h *Handler) JoinClub(c *gin.Context) {
	club, outcome, err := h.service.Join(c.Request.Context(), c.Param("clubId"), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	resp := gin.H{"message": "Successfully joined book club", "bookClub": club}
	if outcome != nil {
		resp["pointsEarned"] = outcome.PointsEarned
	}
	c.JSON(http.StatusOK, resp)
}
