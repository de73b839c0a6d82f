package gamification

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

type RedeemRequest struct {
	Amount int    `json:"amount" binding:"required,min=100"`
	Reward string `json:"reward" binding:"required"`
}

func (h *Handler) Achievements(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	st := snap.Stats
	c.JSON(http.StatusOK, gin.H{
		"achievements": gin.H{
			"badges":  snap.Badges,
			"points":  st.Ledger.Points(),
			"streaks": st.Streak,
		},
		"level": LevelFor(st.Ledger.Total()),
		"analytics": gin.H{
			"totalBooksRead": st.BooksRead,
			"totalPagesRead": st.PagesRead,
			"readingMinutes": st.ReadingMinutes,
		},
	})
}

func (h *Handler) Stats(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	st := snap.Stats
	c.JSON(http.StatusOK, gin.H{"stats": gin.H{
		"totalPoints":     st.Ledger.Total(),
		"readingPoints":   st.Ledger.Reading,
		"socialPoints":    st.Ledger.Social,
		"challengePoints": st.Ledger.Challenge,
		"redeemedPoints":  st.Ledger.Redeemed,
		"level":           LevelFor(st.Ledger.Total()),
		"badges":          len(snap.Badges),
		"currentStreak":   st.Streak.Current,
		"longestStreak":   st.Streak.Longest,
		"booksRead":       st.BooksRead,
		"pagesRead":       st.PagesRead,
	}})
}

func (h *Handler) Streaks(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streaks": snap.Stats.Streak})
}

func (h *Handler) Badges(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	earned := make(map[string]bool, len(snap.Badges))
	for _, b := range snap.Badges {
		earned[b.Name] = true
	}
	type catalogueEntry struct {
		BadgeDefinition
		IsEarned bool `json:"isEarned"`
	}
	out := make([]catalogueEntry, 0, len(Catalogue))
	for _, def := range Catalogue {
		out = append(out, catalogueEntry{BadgeDefinition: def, IsEarned: earned[def.Name]})
	}
	c.JSON(http.StatusOK, gin.H{"badges": out})
}

func (h *Handler) Leaderboard(c *gin.Context) {
	kind := c.DefaultQuery("type", "points")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		apierr.Respond(c, apierr.Validation("Limit must be a number"))
		return
	}
	entries, err := h.service.Leaderboard(c.Request.Context(), kind, limit)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries, "type": kind})
}

func (h *Handler) RedeemPoints(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	remaining, err := h.service.Redeem(c.Request.Context(), c.GetString("user_id"), req.Amount, req.Reward)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Points redeemed successfully",
		"redeemedAmount":  req.Amount,
		"reward":          req.Reward,
		"remainingPoints": remaining,
	})
}
