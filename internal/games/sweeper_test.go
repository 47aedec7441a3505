package games_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doyalikess/stakehouse/internal/games"
	"github.com/doyalikess/stakehouse/internal/models"
	"github.com/doyalikess/stakehouse/internal/store"
)

func TestSweepRefundsIdleSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "mines-seed")

	state, err := f.core.MinesStart(ctx, "p1", &models.MinesStartRequest{Amount: 10, MineCount: 3})
	require.NoError(t, err)

	account, err := f.accounts.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 90.0, account.Balance)

	// Backdate the session past the idle threshold.
	session, err := f.sessions.Get(ctx, "p1", models.GameTypeMines)
	require.NoError(t, err)
	session.LastAction = time.Now().Add(-time.Hour).Unix()
	require.NoError(t, f.sessions.Update(ctx, session))

	sweeper := games.NewSweeper(f.core, time.Minute, 10*time.Minute)

	count, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	account, err = f.accounts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, account.Balance)

	// Refund never counts toward winnings or wagering.
	assert.Zero(t, account.TotalWon)
	assert.Zero(t, account.WageredSinceDeposit)

	wager, err := f.ledger.Get(ctx, state.WagerID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeVoid, wager.Outcome)

	_, err = f.sessions.Get(ctx, "p1", models.GameTypeMines)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	events := f.hub.personalFor("p1", games.EventSessionExpired)
	assert.Len(t, events, 1)

	// A second pass finds nothing.
	count, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSweepLeavesActiveSessionsAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "p1", 100, "mines-seed")

	_, err := f.core.MinesStart(ctx, "p1", &models.MinesStartRequest{Amount: 10, MineCount: 3})
	require.NoError(t, err)

	sweeper := games.NewSweeper(f.core, time.Minute, 10*time.Minute)

	count, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.sessions.Get(ctx, "p1", models.GameTypeMines)
	require.NoError(t, err)
}
