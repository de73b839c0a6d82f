package book

import (
	"net/http"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/gin-gonic/gin"
)

// Handler serves the public catalog and the authenticated rating/creation routes.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListBooks runs a filtered, sorted, paginated catalog query.
func (h *Handler) ListBooks(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	h.list(c, q)
}

// SearchBooks is ListBooks with the search text taken from the path.
func (h *Handler) SearchBooks(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	q.Search = c.Param("query")
	h.list(c, q)
}

// BooksByGenre is ListBooks with the genre taken from the path.
func (h *Handler) BooksByGenre(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	q.Genre = c.Param("genre")
	h.list(c, q)
}

func (h *Handler) list(c *gin.Context, q ListQuery) {
	if err := q.Normalize(); err != nil {
		apierr.Respond(c, err)
		return
	}
	books, meta, err := h.repo.List(c.Request.Context(), q)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PaginatedBooksResponse{Books: books, Pagination: meta})
}

func (h *Handler) Featured(c *gin.Context) {
	books, err := h.repo.Featured(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (h *Handler) Bestsellers(c *gin.Context) {
	books, err := h.repo.Bestsellers(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (h *Handler) NewReleases(c *gin.Context) {
	books, err := h.repo.NewReleases(c.Request.Context(), time.Now())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// GetBook returns one book with up to five similar titles.
func (h *Handler) GetBook(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := h.repo.Get(ctx, c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	similar, err := h.repo.Similar(ctx, b)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": b, "similarBooks": similar})
}

func (h *Handler) BookStats(c *gin.Context) {
	st, err := h.repo.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": st})
}

// RateBook adds one 1..5 rating and an optional review.
func (h *Handler) RateBook(c *gin.Context) {
	var req models.RateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	result, err := h.repo.Rate(c.Request.Context(), c.Param("id"), req.Rating, req.Review)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	logger.Debug("book_rated", "book_id", c.Param("id"), "user_id", c.GetString("user_id"), "rating", req.Rating)
	c.JSON(http.StatusOK, gin.H{"message": "Rating submitted successfully", "rating": result})
}

// CreateBook adds a catalog entry.
func (h *Handler) CreateBook(c *gin.Context) {
	var req models.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	if err := validateOffers(req.Format); err != nil {
		apierr.Respond(c, err)
		return
	}
	b, err := h.repo.Create(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	logger.Info("book_created", "book_id", b.ID, "title", b.Title)
	c.JSON(http.StatusCreated, gin.H{"book": b})
}

func validateOffers(f models.Formats) error {
	for _, o := range []models.FormatOffer{f.Physical, f.Ebook, f.Audiobook} {
		if o.Price.IsNegative() {
			return apierr.Validation("Prices must not be negative")
		}
		if o.Stock < 0 {
			return apierr.Validation("Stock must not be negative")
		}
	}
	return nil
}
