package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/doyalikess/stakehouse/internal/services"
	"github.com/doyalikess/stakehouse/internal/store"
)

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			// Websocket clients pass the token as a query parameter.
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("account_id", claims.AccountID)
		c.Set("session_id", claims.SessionID)

		c.Next()
	}
}

func RateLimitMiddleware(limiter store.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetString("account_id")
		if accountID == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var limit int
		var window time.Duration

		switch {
		case strings.Contains(path, "/mines/reveal"):
			limit = 120 // 120 reveals per minute
			window = time.Minute
		case strings.Contains(path, "/games/"):
			limit = 30 // 30 bets per minute
			window = time.Minute
		case strings.Contains(path, "/withdraw"):
			limit = 5
			window = time.Minute
		default:
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), accountID, path, limit, window)
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
