package games

import (
	"context"

	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/models"
)

// Upgrader is a straight probability bet: the player picks a target
// multiplier and wins with chance just under 1/target.
func (c *Core) Upgrader(ctx context.Context, accountID string, req *models.UpgraderRequest) (*models.GameResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, wager, err := c.stake(ctx, accountID, models.GameTypeUpgrader, req.Amount)
	if err != nil {
		return nil, err
	}

	roll, win := fair.UpgraderWin(c.engine.ServerSeed(), account.ClientSeed, wager.Nonce, req.Target)

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
		GameType:   models.GameTypeUpgrader,
		Win:        win,
		Multiplier: set.Multiplier,
		Payout:     models.CalculatePayout(req.Amount, set.Multiplier),
		Profit:     set.Profit,
		NewBalance: newBalance,
		Roll:       roll,
		ResultHash: set.ResultHash,
		ClientSeed: account.ClientSeed,
		Nonce:      wager.Nonce,
	}

	c.announce(accountID, result)
	return result, nil
}
