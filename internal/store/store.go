package store

import (
	"context"
	"errors"
	"time"

	"github.com/doyalikess/stakehouse/internal/models"
)

var (
	ErrInvalidStake        = errors.New("invalid stake")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrWagerNotFound       = errors.New("wager not found")
	ErrAlreadySettled      = errors.New("wager already settled")
	ErrSessionConflict     = errors.New("session already in progress")
	ErrSessionNotFound     = errors.New("session not found")
	ErrWithdrawLocked      = errors.New("wagering requirement not met")
)

// AccountStore is the single source of truth for spendable funds. Balance
// mutations are conditional single operations at the store boundary; callers
// never read-modify-write.
type AccountStore interface {
	GetOrCreate(ctx context.Context, accountID, username string) (*models.Account, error)
	Get(ctx context.Context, accountID string) (*models.Account, error)

	// DebitForStake atomically checks balance >= amount, debits it, bumps the
	// lifetime wagered total and consumes a fairness nonce. It returns the
	// post-debit account and the nonce the stake should be resolved with.
	DebitForStake(ctx context.Context, accountID string, amount float64) (*models.Account, int64, error)

	// Credit unconditionally adds amount; asWinnings also bumps TotalWon.
	Credit(ctx context.Context, accountID string, amount float64, asWinnings bool) (*models.Account, error)

	// Debit conditionally removes amount (used for settlement rollback).
	Debit(ctx context.Context, accountID string, amount float64) (*models.Account, error)

	// ApplyWagering advances the wagering-requirement counters for a settled
	// stake, with the all-or-nothing reset on completion.
	ApplyWagering(ctx context.Context, accountID string, stake float64) (*models.Account, error)

	// CreditReferral adds the instant reward to the referrer's balance and
	// lifetime referral earnings.
	CreditReferral(ctx context.Context, referrerID string, amount float64) error

	SetReferrer(ctx context.Context, accountID, referrerID string) error
	Deposit(ctx context.Context, accountID string, amount float64) (*models.Account, error)
	Withdraw(ctx context.Context, accountID string, amount float64) (*models.Account, error)
	SetClientSeed(ctx context.Context, accountID, clientSeed string) error
}

// Ledger is the append-only record of every stake and its resolution. A
// wager settles exactly once; a second attempt fails with ErrAlreadySettled.
type Ledger interface {
	CreatePending(ctx context.Context, wager *models.Wager) error
	Get(ctx context.Context, wagerID string) (*models.Wager, error)
	Settle(ctx context.Context, wagerID string, set models.Settlement) error
	Void(ctx context.Context, wagerID string) error
	History(ctx context.Context, accountID string, limit int) ([]*models.Wager, error)
}

// SessionStore holds at most one ongoing game session per (account, game
// type) pair.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, accountID string, gameType models.GameType) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, accountID string, gameType models.GameType) error

	// Stale returns sessions whose last action is older than maxIdle.
	Stale(ctx context.Context, maxIdle time.Duration) ([]*models.Session, error)
}

// RateLimiter bounds per-account action rates.
type RateLimiter interface {
	Allow(ctx context.Context, accountID, action string, limit int, window time.Duration) (bool, error)
}
