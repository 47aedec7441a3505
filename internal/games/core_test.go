package games_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/games"
	"github.com/doyalikess/stakehouse/internal/models"
	"github.com/doyalikess/stakehouse/internal/store"
)

const testServerSeed = "a3f1c8e2b94d7f01a3f1c8e2b94d7f01a3f1c8e2b94d7f01a3f1c8e2b94d7f01"

type hubEvent struct {
	AccountID string
	Event     string
	Payload   interface{}
}

// recordingHub captures notifications so tests can assert on them.
type recordingHub struct {
	mu         sync.Mutex
	personal   []hubEvent
	broadcasts []hubEvent
}

func (h *recordingHub) Notify(accountID, event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.personal = append(h.personal, hubEvent{accountID, event, payload})
}

func (h *recordingHub) Broadcast(event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, hubEvent{"", event, payload})
}

func (h *recordingHub) broadcastsFor(event string) []hubEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []hubEvent
	for _, e := range h.broadcasts {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (h *recordingHub) personalFor(accountID, event string) []hubEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []hubEvent
	for _, e := range h.personal {
		if e.AccountID == accountID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	core     *games.Core
	accounts *store.MemoryAccountStore
	ledger   *store.MemoryLedger
	sessions *store.MemorySessionStore
	hub      *recordingHub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	accounts := store.NewMemoryAccountStore()
	ledger := store.NewMemoryLedger()
	sessions := store.NewMemorySessionStore()
	hub := &recordingHub{}
	core := games.NewCore(accounts, ledger, sessions, fair.NewEngine(testServerSeed), hub)
	return &fixture{core: core, accounts: accounts, ledger: ledger, sessions: sessions, hub: hub}
}

// fund creates an account with the given balance and a fixed client seed so
// outcomes are reproducible.
func (f *fixture) fund(t *testing.T, accountID string, balance float64, clientSeed string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.accounts.GetOrCreate(ctx, accountID, accountID)
	require.NoError(t, err)
	if balance > 0 {
		_, err = f.accounts.Deposit(ctx, accountID, balance)
		require.NoError(t, err)
	}
	require.NoError(t, f.accounts.SetClientSeed(ctx, accountID, clientSeed))
}

func TestCoinflipSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "referrer", 0, "ref-seed")
	f.fund(t, "p1", 50, "client-seed-1")
	require.NoError(t, f.accounts.SetReferrer(ctx, "p1", "referrer"))

	_, expectWin := fair.Coinflip(testServerSeed, "client-seed-1", 0)

	result, err := f.core.Coinflip(ctx, "p1", &models.CoinflipRequest{Amount: 20, Choice: models.CoinflipHeads})
	require.NoError(t, err)

	assert.Equal(t, expectWin, result.Win)
	assert.Equal(t, int64(0), result.Nonce)
	assert.NotEmpty(t, result.ResultHash)

	expectBalance := 30.0
	if expectWin {
		expectBalance = 70.0
		assert.Equal(t, 20.0, result.Profit)
		assert.Equal(t, fair.CoinflipPayout, result.Multiplier)
	} else {
		assert.Equal(t, -20.0, result.Profit)
	}
	assert.Equal(t, expectBalance, result.NewBalance)

	account, err := f.accounts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, expectBalance, account.Balance)
	assert.Equal(t, int64(1), account.Nonce)

	// The referrer earns the cut win or lose.
	referrer, err := f.accounts.Get(ctx, "referrer")
	require.NoError(t, err)
	assert.InDelta(t, 0.20, referrer.ReferralEarnings, 1e-9)

	wager, err := f.ledger.Get(ctx, result.WagerID)
	require.NoError(t, err)
	assert.True(t, wager.Settled())
	assert.Equal(t, "client-seed-1", wager.ClientSeed)

	events := f.hub.personalFor("p1", games.EventWagerSettled)
	assert.Len(t, events, 1)
}

func TestStakeWithoutBalanceHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 10, "client-seed-1")

	_, err := f.core.Coinflip(ctx, "p1", &models.CoinflipRequest{Amount: 50, Choice: models.CoinflipTails})
	assert.ErrorIs(t, err, store.ErrInsufficientBalance)

	account, err := f.accounts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, account.Balance)
	assert.Equal(t, int64(0), account.Nonce)

	history, err := f.core.History(ctx, "p1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSettlementConservesMoney(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 1000, "client-seed-1")

	stake := 5.0
	rounds := 50
	for i := 0; i < rounds; i++ {
		_, err := f.core.Coinflip(ctx, "p1", &models.CoinflipRequest{Amount: stake, Choice: models.CoinflipHeads})
		require.NoError(t, err)
	}

	history, err := f.core.History(ctx, "p1", 100)
	require.NoError(t, err)
	require.Len(t, history, rounds)

	expected := 1000.0
	for _, wager := range history {
		expected += wager.Profit
	}

	account, err := f.accounts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.InDelta(t, expected, account.Balance, 1e-6)
	assert.Equal(t, int64(rounds), account.Nonce)
}

func TestWageringTrackerUnlocksWithdrawal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "client-seed-1")

	_, err := f.accounts.Withdraw(ctx, "p1", 1)
	assert.ErrorIs(t, err, store.ErrWithdrawLocked)

	// 20 stakes of 5 meet the 1x requirement on the 100 deposit whatever
	// the outcomes are.
	for i := 0; i < 20; i++ {
		_, err := f.core.Coinflip(ctx, "p1", &models.CoinflipRequest{Amount: 5, Choice: models.CoinflipHeads})
		require.NoError(t, err)
	}

	account, err := f.accounts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, account.CanWithdraw())
	assert.Zero(t, account.TotalDeposited)
	assert.Zero(t, account.UnwageredAmount)
}

func TestBigWinIsBroadcast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Pick a client seed whose first flip wins.
	winningSeed := ""
	for i := 0; i < 1000; i++ {
		seed := fmt.Sprintf("probe-%d", i)
		if _, win := fair.Coinflip(testServerSeed, seed, 0); win {
			winningSeed = seed
			break
		}
	}
	require.NotEmpty(t, winningSeed)

	f.fund(t, "whale", 5000, winningSeed)

	result, err := f.core.Coinflip(ctx, "whale", &models.CoinflipRequest{Amount: 1500, Choice: models.CoinflipHeads})
	require.NoError(t, err)
	require.True(t, result.Win)
	require.GreaterOrEqual(t, result.Profit, games.HighWinThreshold)

	assert.Len(t, f.hub.broadcastsFor(games.EventBigWin), 1)
}

func TestLimboRejectsOutOfRangeTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "client-seed-1")

	_, err := f.core.Limbo(ctx, "p1", &models.LimboRequest{Amount: 10, Target: 1.0})
	assert.Error(t, err)

	account, err := f.accounts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, account.Balance)
}

func TestLimboSettlesAgainstDrawnCrashPoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "client-seed-1")

	crashPoint := fair.LimboCrash(testServerSeed, "client-seed-1", 0)
	target := 2.0

	result, err := f.core.Limbo(ctx, "p1", &models.LimboRequest{Amount: 10, Target: target})
	require.NoError(t, err)

	assert.Equal(t, crashPoint, result.CrashPoint)
	assert.Equal(t, crashPoint >= target, result.Win)
	if result.Win {
		assert.Equal(t, 110.0, result.NewBalance)
	} else {
		assert.Equal(t, 90.0, result.NewBalance)
	}
}

func TestRouletteSettlesByPocketColor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "client-seed-1")

	pocket := fair.RoulettePocket(testServerSeed, "client-seed-1", 0)
	color := fair.PocketColor(pocket)

	result, err := f.core.Roulette(ctx, "p1", &models.RouletteRequest{Amount: 10, Color: models.RouletteRed})
	require.NoError(t, err)

	assert.Equal(t, pocket, result.Pocket)
	assert.Equal(t, color, result.Color)
	assert.Equal(t, color == models.RouletteRed, result.Win)
}

func TestCrashAutoCashout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "client-seed-1")

	crashPoint := fair.CrashPoint(testServerSeed, "client-seed-1", 0)

	result, err := f.core.Crash(ctx, "p1", &models.CrashRequest{Amount: 10, AutoCashout: 1.5})
	require.NoError(t, err)

	assert.Equal(t, crashPoint, result.CrashPoint)
	assert.Equal(t, crashPoint >= 1.5, result.Win)
	if result.Win {
		assert.Equal(t, 1.5, result.Multiplier)
		assert.Equal(t, 105.0, result.NewBalance)
	}
}

func TestVerificationExposesCommitment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "client-seed-1")

	data, err := f.core.Verification(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "client-seed-1", data.ClientSeed)
	assert.Equal(t, f.core.Engine().ServerSeedHash(), data.ServerSeedHash)
	assert.Equal(t, int64(0), data.CurrentNonce)

	_, err = f.core.Coinflip(ctx, "p1", &models.CoinflipRequest{Amount: 10, Choice: models.CoinflipHeads})
	require.NoError(t, err)

	data, err = f.core.Verification(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.CurrentNonce)
}
