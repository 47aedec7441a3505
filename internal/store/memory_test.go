package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doyalikess/stakehouse/internal/models"
	"github.com/doyalikess/stakehouse/internal/store"
)

func TestDebitForStakeIsConditional(t *testing.T) {
	ctx := context.Background()
	accounts := store.NewMemoryAccountStore()

	_, err := accounts.GetOrCreate(ctx, "a1", "player")
	require.NoError(t, err)
	_, err = accounts.Deposit(ctx, "a1", 50)
	require.NoError(t, err)

	account, nonce, err := accounts.DebitForStake(ctx, "a1", 20)
	require.NoError(t, err)
	assert.Equal(t, 30.0, account.Balance)
	assert.Equal(t, 20.0, account.TotalWagered)
	assert.Equal(t, int64(0), nonce)
	assert.Equal(t, int64(1), account.Nonce)

	_, _, err = accounts.DebitForStake(ctx, "a1", 100)
	assert.ErrorIs(t, err, store.ErrInsufficientBalance)

	_, _, err = accounts.DebitForStake(ctx, "a1", 0)
	assert.ErrorIs(t, err, store.ErrInvalidStake)

	_, _, err = accounts.DebitForStake(ctx, "nobody", 10)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestConcurrentStakesCannotOverdraw(t *testing.T) {
	ctx := context.Background()
	accounts := store.NewMemoryAccountStore()

	_, err := accounts.GetOrCreate(ctx, "a2", "player")
	require.NoError(t, err)
	_, err = accounts.Deposit(ctx, "a2", 100)
	require.NoError(t, err)

	// 20 concurrent stakes of 30 against a balance of 100: at most 3 can win.
	var wg sync.WaitGroup
	successes := make(chan struct{}, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := accounts.DebitForStake(ctx, "a2", 30); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 3, count)

	account, err := accounts.Get(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, 10.0, account.Balance)
	assert.GreaterOrEqual(t, account.Balance, 0.0)
}

func TestWithdrawRequiresWagering(t *testing.T) {
	ctx := context.Background()
	accounts := store.NewMemoryAccountStore()

	_, err := accounts.GetOrCreate(ctx, "a3", "player")
	require.NoError(t, err)
	_, err = accounts.Deposit(ctx, "a3", 100)
	require.NoError(t, err)

	_, err = accounts.Withdraw(ctx, "a3", 10)
	assert.ErrorIs(t, err, store.ErrWithdrawLocked)

	_, err = accounts.ApplyWagering(ctx, "a3", 100)
	require.NoError(t, err)

	account, err := accounts.Withdraw(ctx, "a3", 10)
	require.NoError(t, err)
	assert.Equal(t, 90.0, account.Balance)

	_, err = accounts.Withdraw(ctx, "a3", 1000)
	assert.ErrorIs(t, err, store.ErrInsufficientBalance)
}

func TestReferralCredit(t *testing.T) {
	ctx := context.Background()
	accounts := store.NewMemoryAccountStore()

	_, err := accounts.GetOrCreate(ctx, "referrer", "ref")
	require.NoError(t, err)
	_, err = accounts.GetOrCreate(ctx, "referred", "player")
	require.NoError(t, err)

	require.NoError(t, accounts.SetReferrer(ctx, "referred", "referrer"))
	require.NoError(t, accounts.CreditReferral(ctx, "referrer", 0.2))

	referrer, err := accounts.Get(ctx, "referrer")
	require.NoError(t, err)
	assert.Equal(t, 0.2, referrer.Balance)
	assert.Equal(t, 0.2, referrer.ReferralEarnings)

	referred, err := accounts.Get(ctx, "referred")
	require.NoError(t, err)
	assert.Equal(t, "referrer", referred.ReferredBy)

	assert.Error(t, accounts.SetReferrer(ctx, "referred", "ghost"))
}

func TestLedgerSettlesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewMemoryLedger()

	wager := &models.Wager{
		ID:        "w1",
		AccountID: "a1",
		GameType:  models.GameTypeCoinflip,
		Amount:    20,
		CreatedAt: time.Now().Unix(),
	}
	require.NoError(t, ledger.CreatePending(ctx, wager))

	stored, err := ledger.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePending, stored.Outcome)

	set := models.Settlement{Outcome: models.OutcomeWin, Profit: 20, Multiplier: 2}
	require.NoError(t, ledger.Settle(ctx, "w1", set))

	err = ledger.Settle(ctx, "w1", set)
	assert.ErrorIs(t, err, store.ErrAlreadySettled)

	stored, err = ledger.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWin, stored.Outcome)
	assert.Equal(t, 20.0, stored.Profit)
	assert.NotZero(t, stored.CompletedAt)

	err = ledger.Void(ctx, "w1")
	assert.ErrorIs(t, err, store.ErrAlreadySettled)

	err = ledger.Settle(ctx, "missing", set)
	assert.ErrorIs(t, err, store.ErrWagerNotFound)
}

func TestLedgerHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewMemoryLedger()

	for i, id := range []string{"w1", "w2", "w3"} {
		require.NoError(t, ledger.CreatePending(ctx, &models.Wager{
			ID:        id,
			AccountID: "a1",
			Amount:    float64(i + 1),
		}))
	}
	require.NoError(t, ledger.CreatePending(ctx, &models.Wager{ID: "other", AccountID: "a2"}))

	history, err := ledger.History(ctx, "a1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "w3", history[0].ID)
	assert.Equal(t, "w2", history[1].ID)
}

func TestSessionStoreConflictAndStale(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewMemorySessionStore()

	session := &models.Session{
		AccountID:  "a1",
		GameType:   models.GameTypeMines,
		WagerID:    "w1",
		BetAmount:  10,
		Status:     models.SessionOngoing,
		LastAction: time.Now().Unix(),
	}
	require.NoError(t, sessions.Create(ctx, session))

	err := sessions.Create(ctx, session)
	assert.ErrorIs(t, err, store.ErrSessionConflict)

	// Another game type for the same account is fine.
	require.NoError(t, sessions.Create(ctx, &models.Session{
		AccountID:  "a1",
		GameType:   models.GameTypeLimbo,
		LastAction: time.Now().Unix(),
	}))

	stale, err := sessions.Stale(ctx, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, stale)

	old := &models.Session{
		AccountID:  "a2",
		GameType:   models.GameTypeMines,
		LastAction: time.Now().Add(-20 * time.Minute).Unix(),
	}
	require.NoError(t, sessions.Create(ctx, old))

	stale, err = sessions.Stale(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "a2", stale[0].AccountID)

	require.NoError(t, sessions.Delete(ctx, "a2", models.GameTypeMines))
	_, err = sessions.Get(ctx, "a2", models.GameTypeMines)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := store.NewMemoryRateLimiter()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "a1", "bet", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "a1", "bet", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Different action has its own budget.
	allowed, err = limiter.Allow(ctx, "a1", "cashout", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
