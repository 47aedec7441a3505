package games

import (
	"context"

	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/models"
)

// Roulette spins a 15-pocket wheel: one green pocket paying 14x, seven red
// and seven black paying 2x.
func (c *Core) Roulette(ctx context.Context, accountID string, req *models.RouletteRequest) (*models.GameResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, wager, err := c.stake(ctx, accountID, models.GameTypeRoulette, req.Amount)
	if err != nil {
		return nil, err
	}

	pocket := c.engine.RoulettePocket(account.ClientSeed, wager.Nonce)
	color := fair.PocketColor(pocket)
	win := color == req.Color

	set := models.Settlement{
		Outcome:    models.OutcomeLoss,
		Profit:     -req.Amount,
		ResultHash: c.engine.ResultHash(account.ClientSeed, wager.Nonce),
	}
	if win {
		payout := fair.RoulettePayout(color)
		set.Outcome = models.OutcomeWin
		set.Profit = req.Amount * (payout - 1)
		set.Multiplier = payout
	}

	newBalance, err := c.resolve(ctx, account, wager, set)
	if err != nil {
		return nil, err
	}

	result := &models.GameResult{
		WagerID:    wager.ID,
		GameType:   models.GameTypeRoulette,
		Win:        win,
		Multiplier: set.Multiplier,
		Payout:     models.CalculatePayout(req.Amount, set.Multiplier),
		Profit:     set.Profit,
		NewBalance: newBalance,
		Pocket:     pocket,
		Color:      color,
		ResultHash: set.ResultHash,
		ClientSeed: account.ClientSeed,
		Nonce:      wager.Nonce,
	}

	c.announce(accountID, result)
	return result, nil
}
