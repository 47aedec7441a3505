package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/games"
	"github.com/doyalikess/stakehouse/internal/models"
	"github.com/doyalikess/stakehouse/internal/store"
)

type GameHandler struct {
	core    *games.Core
	jackpot *games.Jackpot
}

func NewGameHandler(core *games.Core, jackpot *games.Jackpot) *GameHandler {
	return &GameHandler{
		core:    core,
		jackpot: jackpot,
	}
}

// respondStoreError maps domain errors onto status codes; anything
// unrecognized is a 500.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidStake),
		errors.Is(err, store.ErrInsufficientBalance),
		errors.Is(err, store.ErrWithdrawLocked),
		errors.Is(err, games.ErrInvalidPosition),
		errors.Is(err, games.ErrNothingRevealed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrWagerNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrSessionConflict),
		errors.Is(err, store.ErrAlreadySettled),
		errors.Is(err, games.ErrTileAlreadyRevealed),
		errors.Is(err, games.ErrRoundLocked),
		errors.Is(err, games.ErrAlreadyEntered),
		errors.Is(err, games.ErrNotEntered):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func (h *GameHandler) PlayCoinflip(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.CoinflipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.core.Coinflip(c.Request.Context(), accountID, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) PlayRoulette(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.RouletteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.core.Roulette(c.Request.Context(), accountID, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) PlayLimbo(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.LimboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.core.Limbo(c.Request.Context(), accountID, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) PlayUpgrader(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.UpgraderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.core.Upgrader(c.Request.Context(), accountID, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) PlayCrash(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.CrashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.core.Crash(c.Request.Context(), accountID, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) StartMines(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.MinesStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	state, err := h.core.MinesStart(c.Request.Context(), accountID, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": state})
}

func (h *GameHandler) RevealMines(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.MinesRevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	state, result, err := h.core.MinesReveal(c.Request.Context(), accountID, req.Position)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if result != nil {
		c.JSON(http.StatusOK, gin.H{"result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": state})
}

func (h *GameHandler) CashoutMines(c *gin.Context) {
	accountID := c.GetString("account_id")

	result, err := h.core.MinesCashout(c.Request.Context(), accountID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *GameHandler) JoinJackpot(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.JackpotJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	round, err := h.jackpot.Join(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"round": round})
}

func (h *GameHandler) LeaveJackpot(c *gin.Context) {
	accountID := c.GetString("account_id")

	round, err := h.jackpot.Leave(c.Request.Context(), accountID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"round": round})
}

func (h *GameHandler) GetJackpotRound(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"round": h.jackpot.Round()})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	accountID := c.GetString("account_id")

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	wagers, err := h.core.History(c.Request.Context(), accountID, limit)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wagers": wagers,
		"count":  len(wagers),
	})
}

func (h *GameHandler) GetVerificationData(c *gin.Context) {
	accountID := c.GetString("account_id")

	data, err := h.core.Verification(c.Request.Context(), accountID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, data)
}

type verifyRequest struct {
	GameType   models.GameType `json:"game_type" binding:"required"`
	ServerSeed string          `json:"server_seed" binding:"required"`
	ClientSeed string          `json:"client_seed" binding:"required"`
	Nonce      int64           `json:"nonce"`

	// Game specific parameters
	Target    float64 `json:"target,omitempty"`
	MineCount int     `json:"mine_count,omitempty"`
}

// VerifyGame recomputes an outcome from disclosed seeds so players can audit
// any settled round offline.
func (h *GameHandler) VerifyGame(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	response := gin.H{
		"game_type":   req.GameType,
		"server_seed": req.ServerSeed,
		"client_seed": req.ClientSeed,
		"nonce":       req.Nonce,
		"result_hash": fair.ResultHash(req.ServerSeed, req.ClientSeed, req.Nonce),
	}

	switch req.GameType {
	case models.GameTypeCoinflip:
		roll, win := fair.Coinflip(req.ServerSeed, req.ClientSeed, req.Nonce)
		response["roll"] = roll
		response["win"] = win
	case models.GameTypeLimbo:
		response["crash_point"] = fair.LimboCrash(req.ServerSeed, req.ClientSeed, req.Nonce)
	case models.GameTypeCrash:
		response["crash_point"] = fair.CrashPoint(req.ServerSeed, req.ClientSeed, req.Nonce)
	case models.GameTypeRoulette:
		pocket := fair.RoulettePocket(req.ServerSeed, req.ClientSeed, req.Nonce)
		response["pocket"] = pocket
		response["color"] = fair.PocketColor(pocket)
	case models.GameTypeMines:
		if req.MineCount < models.MinesMinCount || req.MineCount > models.MinesMaxCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mine_count required for mines verification"})
			return
		}
		response["mines"] = fair.MinePositions(req.ServerSeed, req.ClientSeed, req.Nonce, req.MineCount)
	case models.GameTypeUpgrader:
		if req.Target < models.UpgraderMinTarget || req.Target > models.UpgraderMaxTarget {
			c.JSON(http.StatusBadRequest, gin.H{"error": "target required for upgrader verification"})
			return
		}
		roll, win := fair.UpgraderWin(req.ServerSeed, req.ClientSeed, req.Nonce, req.Target)
		response["roll"] = roll
		response["win"] = win
		response["win_chance"] = fair.UpgraderWinChance(req.Target)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported game type"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetWager returns one settled ledger entry.
func (h *GameHandler) GetWager(c *gin.Context) {
	wagerID := c.Param("id")

	wager, err := h.core.Wager(c.Request.Context(), wagerID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wager": wager})
}
