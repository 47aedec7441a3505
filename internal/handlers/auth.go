package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doyalikess/stakehouse/internal/services"
	"github.com/doyalikess/stakehouse/internal/store"
)

type AuthHandler struct {
	accounts   store.AccountStore
	jwtService *services.JWTService
}

func NewAuthHandler(accounts store.AccountStore, jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		jwtService: jwtService,
	}
}

type guestRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Referrer string `json:"referrer,omitempty"`
}

// Guest creates a fresh account and issues a token for it. An optional
// referrer binds the new account to the referral program permanently.
func (h *AuthHandler) Guest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	accountID := uuid.NewString()
	account, err := h.accounts.GetOrCreate(c.Request.Context(), accountID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	if req.Referrer != "" && req.Referrer != accountID {
		if err := h.accounts.SetReferrer(c.Request.Context(), accountID, req.Referrer); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown referrer"})
			return
		}
	}

	token, sessionID, err := h.jwtService.GenerateToken(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"session_id": sessionID,
		"account": gin.H{
			"id":          account.ID,
			"username":    account.Username,
			"balance":     account.Balance,
			"client_seed": account.ClientSeed,
		},
	})
}

// Refresh issues a fresh token for an authenticated account.
func (h *AuthHandler) Refresh(c *gin.Context) {
	accountID := c.GetString("account_id")

	token, sessionID, err := h.jwtService.GenerateToken(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"session_id": sessionID,
	})
}
