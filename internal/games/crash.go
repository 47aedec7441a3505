package games

import (
	"context"

	"github.com/doyalikess/stakehouse/internal/models"
)

// Crash resolves a bet with a fixed auto-cashout against a drawn crash
// point. There is no live multiplier feed; the round settles instantly, with
// the crash point disclosed either way.
func (c *Core) Crash(ctx context.Context, accountID string, req *models.CrashRequest) (*models.GameResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, wager, err := c.stake(ctx, accountID, models.GameTypeCrash, req.Amount)
	if err != nil {
		return nil, err
	}

	crashPoint := c.engine.CrashPoint(account.ClientSeed, wager.Nonce)
	win := crashPoint >= req.AutoCashout

	set := models.Settlement{
		Outcome:    models.OutcomeLoss,
		Profit:     -req.Amount,
		ResultHash: c.engine.ResultHash(account.ClientSeed, wager.Nonce),
	}
	if win {
		set.Outcome = models.OutcomeWin
		set.Profit = req.Amount * (req.AutoCashout - 1)
		set.Multiplier = req.AutoCashout
	}

	newBalance, err := c.resolve(ctx, account, wager, set)
	if err != nil {
		return nil, err
	}

	result := &models.GameResult{
		WagerID:    wager.ID,
		GameType:   models.GameTypeCrash,
		Win:        win,
		Multiplier: set.Multiplier,
		Payout:     models.CalculatePayout(req.Amount, set.Multiplier),
		Profit:     set.Profit,
		NewBalance: newBalance,
		CrashPoint: crashPoint,
		ResultHash: set.ResultHash,
		ClientSeed: account.ClientSeed,
		Nonce:      wager.Nonce,
	}

	c.announce(accountID, result)
	return result, nil
}
