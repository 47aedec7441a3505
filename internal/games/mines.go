package games

import (
	"context"
	"time"

	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/models"
	"github.com/doyalikess/stakehouse/internal/store"
)

// MinesState is the client view of an ongoing mines round. Mine positions
// stay server-side until the round ends.
type MinesState struct {
	WagerID        string  `json:"wager_id"`
	BetAmount      float64 `json:"bet_amount"`
	MineCount      int     `json:"mine_count"`
	Revealed       []int   `json:"revealed"`
	Multiplier     float64 `json:"multiplier"`
	NextMultiplier float64 `json:"next_multiplier"`
	SafeTilesLeft  int     `json:"safe_tiles_left"`
}

func minesState(session *models.Session) *MinesState {
	return &MinesState{
		WagerID:        session.WagerID,
		BetAmount:      session.BetAmount,
		MineCount:      session.MineCount,
		Revealed:       session.Revealed,
		Multiplier:     session.Multiplier,
		NextMultiplier: fair.MinesMultiplier(session.MineCount, len(session.Revealed)+1),
		SafeTilesLeft:  session.SafeTilesLeft(),
	}
}

// MinesStart stakes and deals a new board. One ongoing mines round per
// account; a second start while one is open fails without touching the
// balance.
func (c *Core) MinesStart(ctx context.Context, accountID string, req *models.MinesStartRequest) (*MinesState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := c.lockAccount(accountID)
	defer unlock()

	if _, err := c.sessions.Get(ctx, accountID, models.GameTypeMines); err == nil {
		return nil, store.ErrSessionConflict
	}

	account, wager, err := c.stake(ctx, accountID, models.GameTypeMines, req.Amount)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	session := &models.Session{
		AccountID:  accountID,
		GameType:   models.GameTypeMines,
		WagerID:    wager.ID,
		BetAmount:  req.Amount,
		Multiplier: 1.0,
		Status:     models.SessionOngoing,
		MineCount:  req.MineCount,
		Mines:      c.engine.MinePositions(account.ClientSeed, wager.Nonce, req.MineCount),
		StartedAt:  now,
		LastAction: now,
	}

	if err := c.sessions.Create(ctx, session); err != nil {
		if refundErr := c.refund(ctx, wager); refundErr != nil {
			return nil, refundErr
		}
		return nil, err
	}

	return minesState(session), nil
}

// MinesReveal uncovers one tile. A safe tile bumps the multiplier and keeps
// the round open; a mine settles it as a loss. Clearing the last safe tile
// cashes out automatically.
func (c *Core) MinesReveal(ctx context.Context, accountID string, position int) (*MinesState, *models.GameResult, error) {
	if position < 0 || position >= models.MinesGridSize {
		return nil, nil, ErrInvalidPosition
	}

	unlock := c.lockAccount(accountID)
	defer unlock()

	session, err := c.sessions.Get(ctx, accountID, models.GameTypeMines)
	if err != nil {
		return nil, nil, err
	}
	if session.HasRevealed(position) {
		return nil, nil, ErrTileAlreadyRevealed
	}

	if session.IsMine(position) {
		result, err := c.minesSettleLoss(ctx, session, position)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}

	session.Revealed = append(session.Revealed, position)
	session.Multiplier = fair.MinesMultiplier(session.MineCount, len(session.Revealed))
	session.Touch()

	if session.SafeTilesLeft() == 0 {
		result, err := c.minesSettleWin(ctx, session)
		if err != nil {
			return nil, nil, err
		}
		return nil, result, nil
	}

	if err := c.sessions.Update(ctx, session); err != nil {
		return nil, nil, err
	}

	return minesState(session), nil, nil
}

// MinesCashout banks the current multiplier. At least one tile must have
// been revealed.
func (c *Core) MinesCashout(ctx context.Context, accountID string) (*models.GameResult, error) {
	unlock := c.lockAccount(accountID)
	defer unlock()

	session, err := c.sessions.Get(ctx, accountID, models.GameTypeMines)
	if err != nil {
		return nil, err
	}
	if len(session.Revealed) == 0 {
		return nil, ErrNothingRevealed
	}

	return c.minesSettleWin(ctx, session)
}

func (c *Core) minesSettleWin(ctx context.Context, session *models.Session) (*models.GameResult, error) {
	account, wager, err := c.minesLoad(ctx, session)
	if err != nil {
		return nil, err
	}

	set := models.Settlement{
		Outcome:    models.OutcomeWin,
		Profit:     session.BetAmount*session.Multiplier - session.BetAmount,
		Multiplier: session.Multiplier,
		ResultHash: c.engine.ResultHash(wager.ClientSeed, wager.Nonce),
	}

	newBalance, err := c.resolve(ctx, account, wager, set)
	if err != nil {
		return nil, err
	}

	if err := c.sessions.Delete(ctx, session.AccountID, models.GameTypeMines); err != nil {
		return nil, err
	}

	result := &models.GameResult{
		WagerID:    wager.ID,
		GameType:   models.GameTypeMines,
		Win:        true,
		Multiplier: set.Multiplier,
		Payout:     models.CalculatePayout(session.BetAmount, set.Multiplier),
		Profit:     set.Profit,
		NewBalance: newBalance,
		Mines:      session.Mines,
		ResultHash: set.ResultHash,
		ClientSeed: wager.ClientSeed,
		Nonce:      wager.Nonce,
	}

	c.announce(session.AccountID, result)
	return result, nil
}

func (c *Core) minesSettleLoss(ctx context.Context, session *models.Session, mineHit int) (*models.GameResult, error) {
	account, wager, err := c.minesLoad(ctx, session)
	if err != nil {
		return nil, err
	}

	set := models.Settlement{
		Outcome:    models.OutcomeLoss,
		Profit:     -session.BetAmount,
		ResultHash: c.engine.ResultHash(wager.ClientSeed, wager.Nonce),
	}

	newBalance, err := c.resolve(ctx, account, wager, set)
	if err != nil {
		return nil, err
	}

	if err := c.sessions.Delete(ctx, session.AccountID, models.GameTypeMines); err != nil {
		return nil, err
	}

	result := &models.GameResult{
		WagerID:    wager.ID,
		GameType:   models.GameTypeMines,
		Win:        false,
		Profit:     set.Profit,
		NewBalance: newBalance,
		MineHit:    mineHit,
		Mines:      session.Mines,
		ResultHash: set.ResultHash,
		ClientSeed: wager.ClientSeed,
		Nonce:      wager.Nonce,
	}

	c.announce(session.AccountID, result)
	return result, nil
}

func (c *Core) minesLoad(ctx context.Context, session *models.Session) (*models.Account, *models.Wager, error) {
	account, err := c.accounts.Get(ctx, session.AccountID)
	if err != nil {
		return nil, nil, err
	}
	wager, err := c.ledger.Get(ctx, session.WagerID)
	if err != nil {
		return nil, nil, err
	}
	return account, wager, nil
}
