package user

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/auth"
	"github.com/binhbb2204/litverse/internal/book"
	"github.com/binhbb2204/litverse/internal/gamification"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/gin-gonic/gin"
)

// EventReadingProgressUpdate is pushed to the reader's room after each progress report.
const EventReadingProgressUpdate = "reading-progress-update"

// Handler serves the reader's own profile, library and social graph.
type Handler struct {
	repo      *Repository
	books     *book.Repository
	progress  *gamification.Service
	publisher gamification.Publisher
	now       func() time.Time
}

func NewHandler(repo *Repository, books *book.Repository, progress *gamification.Service, publisher gamification.Publisher) *Handler {
	return &Handler{repo: repo, books: books, progress: progress, publisher: publisher, now: time.Now}
}

func (h *Handler) GetProfile(c *gin.Context) {
	u, err := auth.LoadUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	userID := c.GetString("user_id")
	if err := h.repo.UpdateProfile(c.Request.Context(), userID, req); err != nil {
		apierr.Respond(c, err)
		return
	}
	u, err := auth.LoadUser(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": u})
}

func (h *Handler) GetLibrary(c *gin.Context) {
	lib, err := h.library(c)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"library": lib})
}

func (h *Handler) library(c *gin.Context) (models.UserLibrary, error) {
	lib := models.UserLibrary{
		Owned:     []models.LibraryEntry{},
		Wishlist:  []models.LibraryEntry{},
		Reading:   []models.LibraryEntry{},
		Completed: []models.LibraryEntry{},
	}
	ctx := c.Request.Context()
	entries, err := h.repo.entries(ctx, c.GetString("user_id"))
	if err != nil {
		return lib, err
	}
	for _, e := range entries {
		b, err := h.books.Get(ctx, e.BookID)
		if errors.Is(err, book.ErrBookNotFound) {
			continue
		}
		if err != nil {
			return lib, err
		}
		entry := models.LibraryEntry{Book: b, Shelf: e.Shelf, UpdatedAt: e.UpdatedAt}
		switch e.Shelf {
		case models.ShelfOwned:
			lib.Owned = append(lib.Owned, entry)
		case models.ShelfWishlist:
			lib.Wishlist = append(lib.Wishlist, entry)
		case models.ShelfReading:
			lib.Reading = append(lib.Reading, entry)
		case models.ShelfCompleted:
			lib.Completed = append(lib.Completed, entry)
		}
	}
	return lib, nil
}

// AddToLibrary moves a book onto the shelf named by :action. Completing a
// book for the first time counts it toward the reader's totals.
func (h *Handler) AddToLibrary(c *gin.Context) {
	shelf := c.Param("action")
	if !models.IsShelf(shelf) {
		apierr.Respond(c, ErrInvalidShelf)
		return
	}
	var req models.LibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	ctx := c.Request.Context()
	userID := c.GetString("user_id")

	b, err := h.books.Get(ctx, req.BookID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	now := h.now()

	var outcome *gamification.Outcome
	if shelf == models.ShelfCompleted {
		outcome, err = h.progress.CompleteBook(ctx, userID, b.ID, b.Pages, func(ctx context.Context, tx *sql.Tx) error {
			return h.repo.PlaceOnShelfTx(ctx, tx, userID, b.ID, shelf, now)
		})
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		if outcome != nil {
			logger.Info("book_completed", "user_id", userID, "book_id", b.ID, "pages", b.Pages)
		}
	} else if err := h.repo.PlaceOnShelf(ctx, userID, b.ID, shelf, now); err != nil {
		apierr.Respond(c, err)
		return
	}

	lib, err := h.library(c)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	resp := gin.H{"message": "Book added to " + shelf + " successfully", "library": lib}
	if outcome != nil {
		resp["achievements"] = outcome
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RemoveFromLibrary(c *gin.Context) {
	shelf := c.Param("action")
	if !models.IsShelf(shelf) {
		apierr.Respond(c, ErrInvalidShelf)
		return
	}
	if err := h.repo.RemoveFromShelf(c.Request.Context(), c.GetString("user_id"), c.Param("bookId"), shelf); err != nil {
		apierr.Respond(c, err)
		return
	}
	lib, err := h.library(c)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book removed from " + shelf + " successfully", "library": lib})
}

func (h *Handler) ReadingProgress(c *gin.Context) {
	var req models.ReadingProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	ctx := c.Request.Context()
	userID := c.GetString("user_id")
	if _, err := h.books.Get(ctx, req.BookID); err != nil {
		apierr.Respond(c, err)
		return
	}

	outcome, err := h.progress.RecordReading(ctx, userID, *req.PagesRead, *req.TimeSpent)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if h.publisher != nil {
		h.publisher.PublishToUser(userID, EventReadingProgressUpdate, gin.H{
			"userId":       userID,
			"bookId":       req.BookID,
			"pagesRead":    *req.PagesRead,
			"pointsEarned": outcome.PointsEarned,
			"streak":       outcome.Streak,
		})
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reading progress updated successfully", "achievements": outcome})
}

func (h *Handler) Analytics(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("user_id")
	snap, err := h.progress.Snapshot(ctx, userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	shelves, err := h.repo.ShelfCounts(ctx, userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	followers, following, err := h.repo.Connections(ctx, userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	st := snap.Stats
	c.JSON(http.StatusOK, gin.H{
		"analytics": gin.H{
			"totalBooksRead": st.BooksRead,
			"totalPagesRead": st.PagesRead,
			"readingTime":    gin.H{"total": st.ReadingMinutes},
			"currentStreak":  st.Streak.Current,
			"longestStreak":  st.Streak.Longest,
		},
		"library":   shelves,
		"followers": len(followers),
		"following": len(following),
		"points":    st.Ledger.Points(),
		"level":     gamification.LevelFor(st.Ledger.Total()),
	})
}

func (h *Handler) Social(c *gin.Context) {
	followers, following, err := h.repo.Connections(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": followers, "following": following})
}

func (h *Handler) Follow(c *gin.Context) {
	created, err := h.repo.Follow(c.Request.Context(), c.GetString("user_id"), c.Param("userId"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	msg := "Followed successfully"
	if !created {
		msg = "Already following"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "isFollowing": true})
}

func (h *Handler) Unfollow(c *gin.Context) {
	if err := h.repo.Unfollow(c.Request.Context(), c.GetString("user_id"), c.Param("userId")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed successfully", "isFollowing": false})
}
