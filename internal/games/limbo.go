package games

import (
	"context"

	"github.com/doyalikess/stakehouse/internal/models"
)

// Limbo draws a crash point and the player wins when it reaches their chosen
// target. The payout is exactly the target multiplier.
func (c *Core) Limbo(ctx context.Context, accountID string, req *models.LimboRequest) (*models.GameResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, wager, err := c.stake(ctx, accountID, models.GameTypeLimbo, req.Amount)
	if err != nil {
		return nil, err
	}

	crashPoint := c.engine.LimboCrash(account.ClientSeed, wager.Nonce)
	win := crashPoint >= req.Target

	set := models.Settlement{
		Outcome:    models.OutcomeLoss,
		Profit:     -req.Amount,
		ResultHash: c.engine.ResultHash(account.ClientSeed, wager.Nonce),
	}
	if win {
		set.Outcome = models.OutcomeWin
		set.Profit = req.Amount * (req.Target - 1)
		set.Multiplier = req.Target
	}

	newBalance, err := c.resolve(ctx, account, wager, set)
	if err != nil {
		return nil, err
	}

	result := &models.GameResult{
		WagerID:    wager.ID,
		GameType:   models.GameTypeLimbo,
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
