package games

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/models"
	"github.com/doyalikess/stakehouse/internal/store"
)

const (
	// ReferralRate is the cut of every settled stake credited to the
	// referrer, win or lose.
	ReferralRate = 0.01

	// HighWinThreshold is the profit above which a win is broadcast to all
	// connected clients. Wins at or above HighWinMultiplier broadcast
	// regardless of size.
	HighWinThreshold  = 1000.0
	HighWinMultiplier = 100.0
)

var (
	ErrInvalidPosition     = errors.New("tile position out of range")
	ErrTileAlreadyRevealed = errors.New("tile already revealed")
	ErrNothingRevealed     = errors.New("reveal at least one tile before cashing out")
	ErrRoundLocked         = errors.New("round is locked")
	ErrAlreadyEntered      = errors.New("already entered this round")
	ErrNotEntered          = errors.New("not entered in this round")
)

// Core runs the stake-to-settlement pipeline shared by every game: debit the
// stake, open a pending ledger entry, resolve the outcome, credit any payout,
// close the entry, then apply the wagering tracker and referral cut.
type Core struct {
	accounts store.AccountStore
	ledger   store.Ledger
	sessions store.SessionStore
	engine   *fair.Engine
	notify   Broadcaster

	// Per-account mutexes serialize multi-step session transitions.
	locks sync.Map
}

func NewCore(accounts store.AccountStore, ledger store.Ledger, sessions store.SessionStore, engine *fair.Engine, notify Broadcaster) *Core {
	if notify == nil {
		notify = NopBroadcaster{}
	}
	return &Core{
		accounts: accounts,
		ledger:   ledger,
		sessions: sessions,
		engine:   engine,
		notify:   notify,
	}
}

func (c *Core) Engine() *fair.Engine {
	return c.engine
}

func (c *Core) lockAccount(accountID string) func() {
	v, _ := c.locks.LoadOrStore(accountID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// stake debits the account and opens a pending wager. If the ledger write
// fails the debit is reversed so no funds are stranded.
func (c *Core) stake(ctx context.Context, accountID string, gameType models.GameType, amount float64) (*models.Account, *models.Wager, error) {
	account, nonce, err := c.accounts.DebitForStake(ctx, accountID, amount)
	if err != nil {
		return nil, nil, err
	}

	wager := &models.Wager{
		ID:             models.GenerateWagerID(),
		AccountID:      accountID,
		GameType:       gameType,
		Amount:         amount,
		Outcome:        models.OutcomePending,
		ClientSeed:     account.ClientSeed,
		ServerSeedHash: c.engine.ServerSeedHash(),
		Nonce:          nonce,
		CreatedAt:      time.Now().Unix(),
	}

	if err := c.ledger.CreatePending(ctx, wager); err != nil {
		if _, creditErr := c.accounts.Credit(ctx, accountID, amount, false); creditErr != nil {
			log.Printf("CRITICAL: failed to reverse stake for account %s wager %s: %v", accountID, wager.ID, creditErr)
		}
		return nil, nil, err
	}

	return account, wager, nil
}

// resolve closes a pending wager exactly once. The ledger settle is the gate:
// if the wager is already settled nothing else runs, so a payout can never be
// credited twice.
func (c *Core) resolve(ctx context.Context, account *models.Account, wager *models.Wager, set models.Settlement) (float64, error) {
	if err := c.ledger.Settle(ctx, wager.ID, set); err != nil {
		return 0, err
	}

	newBalance := account.Balance
	if set.Outcome == models.OutcomeWin {
		payout := wager.Amount + set.Profit
		credited, err := c.accounts.Credit(ctx, wager.AccountID, payout, true)
		if err != nil {
			log.Printf("CRITICAL: failed to credit payout %.2f for wager %s: %v", payout, wager.ID, err)
			return 0, err
		}
		newBalance = credited.Balance
	}

	if _, err := c.accounts.ApplyWagering(ctx, wager.AccountID, wager.Amount); err != nil {
		log.Printf("failed to apply wagering for account %s: %v", wager.AccountID, err)
	}

	if account.ReferredBy != "" {
		cut := wager.Amount * ReferralRate
		if err := c.accounts.CreditReferral(ctx, account.ReferredBy, cut); err != nil {
			log.Printf("failed to credit referral %.2f to %s: %v", cut, account.ReferredBy, err)
		}
	}

	return newBalance, nil
}

// refund voids a pending wager and returns the stake. Voided wagers never
// count toward the wagering requirement.
func (c *Core) refund(ctx context.Context, wager *models.Wager) error {
	if err := c.ledger.Void(ctx, wager.ID); err != nil {
		return err
	}
	if _, err := c.accounts.Credit(ctx, wager.AccountID, wager.Amount, false); err != nil {
		log.Printf("CRITICAL: failed to refund stake %.2f for wager %s: %v", wager.Amount, wager.ID, err)
		return err
	}
	return nil
}

func (c *Core) announce(accountID string, result *models.GameResult) {
	c.notify.Notify(accountID, EventWagerSettled, result)
	if result.Win && (result.Profit >= HighWinThreshold || result.Multiplier >= HighWinMultiplier) {
		c.notify.Broadcast(EventBigWin, map[string]interface{}{
			"game_type":  result.GameType,
			"multiplier": result.Multiplier,
			"profit":     result.Profit,
		})
	}
}

// History returns the account's most recent wagers, newest first.
func (c *Core) History(ctx context.Context, accountID string, limit int) ([]*models.Wager, error) {
	return c.ledger.History(ctx, accountID, limit)
}

// Wager looks up one ledger entry. Mine positions of ongoing sessions are
// never exposed through this path because they only land in the ledger at
// settlement.
func (c *Core) Wager(ctx context.Context, wagerID string) (*models.Wager, error) {
	return c.ledger.Get(ctx, wagerID)
}

// Verification exposes everything a player needs to audit upcoming rounds.
func (c *Core) Verification(ctx context.Context, accountID string) (*models.VerificationData, error) {
	account, err := c.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &models.VerificationData{
		ClientSeed:     account.ClientSeed,
		ServerSeedHash: c.engine.ServerSeedHash(),
		CurrentNonce:   account.Nonce,
	}, nil
}
