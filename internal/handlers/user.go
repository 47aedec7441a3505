package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doyalikess/stakehouse/internal/store"
)

type UserHandler struct {
	accounts store.AccountStore
}

func NewUserHandler(accounts store.AccountStore) *UserHandler {
	return &UserHandler{accounts: accounts}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	accountID := c.GetString("account_id")

	account, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account": gin.H{
			"id":                account.ID,
			"username":          account.Username,
			"balance":           account.Balance,
			"total_wagered":     account.TotalWagered,
			"total_won":         account.TotalWon,
			"level":             account.Level(),
			"referral_earnings": account.ReferralEarnings,
			"client_seed":       account.ClientSeed,
			"nonce":             account.Nonce,
		},
		"wagering": gin.H{
			"required":     account.RequiredWagering(),
			"progress":     account.WageredSinceDeposit,
			"remaining":    account.RemainingWagering(),
			"can_withdraw": account.CanWithdraw(),
		},
	})
}

type amountRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

func (h *UserHandler) Deposit(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	account, err := h.accounts.Deposit(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":            account.Balance,
		"required_wagering":  account.RequiredWagering(),
		"remaining_wagering": account.RemainingWagering(),
	})
}

func (h *UserHandler) Withdraw(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	account, err := h.accounts.Withdraw(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":   account.Balance,
		"withdrawn": req.Amount,
	})
}

type clientSeedRequest struct {
	ClientSeed string `json:"client_seed" binding:"required,min=8,max=128"`
}

func (h *UserHandler) SetClientSeed(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req clientSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.accounts.SetClientSeed(c.Request.Context(), accountID, req.ClientSeed); err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"client_seed": req.ClientSeed})
}
