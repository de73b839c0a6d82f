package auth

import (
	"errors"
	"strings"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token and stores user_id and username on the context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apierr.Respond(c, apierr.Auth("Access token required"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			apierr.Respond(c, apierr.Auth("Invalid authorization header format"))
			return
		}

		claims, err := utils.ValidateJWT(strings.TrimSpace(parts[1]), jwtSecret)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				apierr.Respond(c, apierr.Auth("Token expired"))
				return
			}
			apierr.Respond(c, apierr.Auth("Invalid token"))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}
