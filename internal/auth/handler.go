package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/binhbb2204/litverse/pkg/utils"
	"github.com/gin-gonic/gin"
)

var errWeakPassword = apierr.Validation("Password too weak: must be at least 8 characters with mixed case and numbers")

type Handler struct {
	JWTSecret string
}

func NewHandler(jwtSecret string) *Handler {
	return &Handler{JWTSecret: jwtSecret}
}

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validatePasswordStrength(req.Password); err != nil {
		apierr.Respond(c, err)
		return
	}

	userID, err := utils.GenerateID(16)
	if err != nil {
		apierr.Respond(c, apierr.Internal("Failed to generate user ID", err))
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		apierr.Respond(c, apierr.Internal("Failed to hash password", err))
		return
	}

	query := `INSERT INTO users (id, username, email, password_hash, first_name, last_name) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = database.DB.ExecContext(c.Request.Context(), query, userID, req.Username, req.Email, hashedPassword, req.FirstName, req.LastName)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			apierr.Respond(c, apierr.Conflict("Username already exists"))
			return
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			apierr.Respond(c, apierr.Conflict("Email already exists"))
			return
		}
		apierr.Respond(c, apierr.Internal("Failed to create user", err))
		return
	}
	if _, err := database.DB.ExecContext(c.Request.Context(), `INSERT OR IGNORE INTO reader_stats (user_id) VALUES (?)`, userID); err != nil {
		logger.Warn("reader_stats_init_failed", "user_id", userID, "error", err)
	}

	user, err := LoadUser(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	logger.Info("user_registered", "user_id", userID, "username", user.Username)
	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	if req.Username == "" && req.Email == "" {
		apierr.Respond(c, apierr.Validation("Username or email is required"))
		return
	}

	column, value := "username", strings.TrimSpace(req.Username)
	if value == "" {
		column, value = "email", strings.ToLower(strings.TrimSpace(req.Email))
	}

	var userID, hash string
	var active bool
	err := database.DB.QueryRowContext(c.Request.Context(),
		`SELECT id, password_hash, is_active FROM users WHERE `+column+` = ?`, value).
		Scan(&userID, &hash, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apierr.Respond(c, apierr.Auth("Invalid credentials"))
			return
		}
		apierr.Respond(c, apierr.Internal("Database error", err))
		return
	}

	if err := utils.CheckPassword(hash, req.Password); err != nil || !active {
		apierr.Respond(c, apierr.Auth("Invalid credentials"))
		return
	}

	user, err := LoadUser(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user models.User) {
	token, err := utils.GenerateJWT(user.ID, user.Username, h.JWTSecret)
	if err != nil {
		apierr.Respond(c, apierr.Internal("Failed to generate token", err))
		return
	}
	c.JSON(status, models.AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(utils.TokenTTL).UTC(),
		User:      user,
	})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	user, err := LoadUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	if err := validatePasswordStrength(req.NewPassword); err != nil {
		apierr.Respond(c, err)
		return
	}

	var hash string
	if err := database.DB.QueryRowContext(c.Request.Context(), `SELECT password_hash FROM users WHERE id = ?`, userID).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apierr.Respond(c, apierr.NotFound("Account not found"))
			return
		}
		apierr.Respond(c, apierr.Internal("Database error", err))
		return
	}
	if err := utils.CheckPassword(hash, req.CurrentPassword); err != nil {
		apierr.Respond(c, apierr.Auth("Invalid credentials"))
		return
	}
	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		apierr.Respond(c, apierr.Internal("Failed to hash password", err))
		return
	}
	if _, err := database.DB.ExecContext(c.Request.Context(), `UPDATE users SET password_hash = ? WHERE id = ?`, newHash, userID); err != nil {
		apierr.Respond(c, apierr.Internal("Failed to update password", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// LoadUser reads a user profile by id.
func LoadUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	var genres string
	err := database.DB.QueryRowContext(ctx, `
		SELECT id, username, email, first_name, last_name, bio, favorite_genres, reading_speed, created_at
		FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Bio, &genres, &u.ReadingSpeed, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apierr.NotFound("User not found")
	}
	if err != nil {
		return u, apierr.Internal("Database error", err)
	}
	if err := json.Unmarshal([]byte(genres), &u.FavoriteGenres); err != nil || u.FavoriteGenres == nil {
		u.FavoriteGenres = []string{}
	}
	return u, nil
}

func validatePasswordStrength(pw string) error {
	if len(pw) < 8 {
		return errWeakPassword
	}
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !(lower && upper && digit) {
		return errWeakPassword
	}
	return nil
}
