package games

import (
	"context"

	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/models"
)

// Coinflip resolves a single flip. The win probability is fixed below one
// half regardless of the side called, so calling heads or tails is purely
// cosmetic.
func (c *Core) Coinflip(ctx context.Context, accountID string, req *models.CoinflipRequest) (*models.GameResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, wager, err := c.stake(ctx, accountID, models.GameTypeCoinflip, req.Amount)
	if err != nil {
		return nil, err
	}

	_, win := c.engine.Coinflip(account.ClientSeed, wager.Nonce)

	set := models.Settlement{
		Outcome:    models.OutcomeLoss,
		Profit:     -req.Amount,
		ResultHash: c.engine.ResultHash(account.ClientSeed, wager.Nonce),
	}
	if win {
		set.Outcome = models.OutcomeWin
		set.Profit = req.Amount * (fair.CoinflipPayout - 1)
		set.Multiplier = fair.CoinflipPayout
	}

	newBalance, err := c.resolve(ctx, account, wager, set)
	if err != nil {
		return nil, err
	}

	side := req.Choice
	if !win {
		side = models.CoinflipTails
		if req.Choice == models.CoinflipTails {
			side = models.CoinflipHeads
		}
	}

	result := &models.GameResult{
		WagerID:    wager.ID,
		GameType:   models.GameTypeCoinflip,
		Win:        win,
		Multiplier: set.Multiplier,
		Payout:     models.CalculatePayout(req.Amount, set.Multiplier),
		Profit:     set.Profit,
		NewBalance: newBalance,
		Side:       side,
		ResultHash: set.ResultHash,
		ClientSeed: account.ClientSeed,
		Nonce:      wager.Nonce,
	}

	c.announce(accountID, result)
	return result, nil
}
