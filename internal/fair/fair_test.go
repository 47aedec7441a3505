package fair

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doyalikess/stakehouse/internal/models"
)

const (
	testServerSeed = "8a2cf94dca8f08a2f3099bc3ba9e1d4ca2cf94dca8f08a2f3099bc3ba9e1d4c0"
	testClientSeed = "d41d8cd98f00b204"
)

func TestFloatsAreDeterministic(t *testing.T) {
	a := Floats(testServerSeed, testClientSeed, 7, 8)
	b := Floats(testServerSeed, testClientSeed, 7, 8)

	require.Equal(t, a, b)
	for _, f := range a {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestFloatsDifferAcrossNonces(t *testing.T) {
	a := Floats(testServerSeed, testClientSeed, 1, 1)
	b := Floats(testServerSeed, testClientSeed, 2, 1)
	assert.NotEqual(t, a[0], b[0])
}

func TestByteGeneratorCrossesRoundBoundary(t *testing.T) {
	bg := NewByteGenerator(testServerSeed, testClientSeed, 0)

	// 32-byte HMAC rounds hold 8 floats; the 9th forces a new round.
	var floats []float64
	for i := 0; i < 9; i++ {
		floats = append(floats, bg.NextFloat())
	}

	assert.Len(t, floats, 9)
	assert.NotEqual(t, floats[7], floats[8])
}

func TestCoinflipEdgeIsBelowHalf(t *testing.T) {
	wins := 0
	trials := 20000
	for nonce := 0; nonce < trials; nonce++ {
		if _, win := Coinflip(testServerSeed, testClientSeed, int64(nonce)); win {
			wins++
		}
	}

	rate := float64(wins) / float64(trials)
	assert.InDelta(t, CoinflipWinProbability, rate, 0.02)
	assert.Less(t, CoinflipWinProbability, 0.5)
}

func TestLimboCrashBounds(t *testing.T) {
	for nonce := int64(0); nonce < 5000; nonce++ {
		crash := LimboCrash(testServerSeed, testClientSeed, nonce)
		assert.GreaterOrEqual(t, crash, 1.0)
		assert.LessOrEqual(t, crash, models.LimboMaxTarget)
	}
}

func TestLimboWinRateConvergesToInverseTarget(t *testing.T) {
	targets := []float64{1.5, 2.0, 5.0, 10.0}
	trials := 20000

	for _, target := range targets {
		wins := 0
		for nonce := 0; nonce < trials; nonce++ {
			if LimboCrash(testServerSeed, testClientSeed, int64(nonce)) >= target {
				wins++
			}
		}
		rate := float64(wins) / float64(trials)
		// Expected rate is houseEdge/target; statistical tolerance on top.
		assert.InDelta(t, 0.99/target, rate, 0.02, "target %.1f", target)
	}
}

func TestLimboCrashIsReproducible(t *testing.T) {
	first := LimboCrash(testServerSeed, testClientSeed, 42)
	second := LimboCrash(testServerSeed, testClientSeed, 42)
	assert.Equal(t, first, second)
}

func TestMinePositionsUniqueAndInRange(t *testing.T) {
	for _, count := range []int{1, 3, 10, 24} {
		mines := MinePositions(testServerSeed, testClientSeed, 5, count)
		require.Len(t, mines, count)

		seen := make(map[int]bool)
		for _, pos := range mines {
			assert.GreaterOrEqual(t, pos, 0)
			assert.Less(t, pos, models.MinesGridSize)
			assert.False(t, seen[pos], "duplicate mine position %d", pos)
			seen[pos] = true
		}
	}
}

func TestMinePositionsDeterministic(t *testing.T) {
	a := MinePositions(testServerSeed, testClientSeed, 11, 3)
	b := MinePositions(testServerSeed, testClientSeed, 11, 3)
	assert.Equal(t, a, b)
}

func TestMinesMultiplierMonotonic(t *testing.T) {
	for _, mineCount := range []int{1, 3, 5, 24} {
		prev := 0.0
		safeTiles := models.MinesGridSize - mineCount
		for revealed := 1; revealed <= safeTiles; revealed++ {
			mult := MinesMultiplier(mineCount, revealed)
			assert.Greater(t, mult, prev,
				"mines=%d revealed=%d", mineCount, revealed)
			prev = mult
		}
	}
}

func TestMinesMultiplierDegenerateCase(t *testing.T) {
	// 24 mines leave a single safe tile; revealing past it must not divide
	// by zero and must stay flat.
	max := MinesMultiplier(24, 1)
	assert.Greater(t, max, 1.0)
	assert.Equal(t, max, MinesMultiplier(24, 2))
	assert.Equal(t, 1.0, MinesMultiplier(3, 0))
}

func TestMinesFullClearIsMaxMultiplier(t *testing.T) {
	// Clearing all safe tiles with 24 mines means surviving a 1-in-25 pick.
	full := MinesMultiplier(24, 1)
	assert.InDelta(t, math.Floor(25*0.99*100)/100, full, 0.001)
}

func TestRoulettePocketDistribution(t *testing.T) {
	counts := make(map[models.RouletteColor]int)
	trials := 15000
	for nonce := 0; nonce < trials; nonce++ {
		pocket := RoulettePocket(testServerSeed, testClientSeed, int64(nonce))
		require.GreaterOrEqual(t, pocket, 0)
		require.Less(t, pocket, RoulettePockets)
		counts[PocketColor(pocket)]++
	}

	assert.InDelta(t, 1.0/15, float64(counts[models.RouletteGreen])/float64(trials), 0.01)
	assert.InDelta(t, 7.0/15, float64(counts[models.RouletteRed])/float64(trials), 0.02)
	assert.InDelta(t, 7.0/15, float64(counts[models.RouletteBlack])/float64(trials), 0.02)
}

func TestUpgraderWinChance(t *testing.T) {
	assert.InDelta(t, 0.495, UpgraderWinChance(2.0), 1e-9)
	assert.InDelta(t, 0.099, UpgraderWinChance(10.0), 1e-9)
	assert.Zero(t, UpgraderWinChance(1.0))
}

func TestCrashPointBounds(t *testing.T) {
	for nonce := int64(0); nonce < 2000; nonce++ {
		point := CrashPoint(testServerSeed, testClientSeed, nonce)
		assert.GreaterOrEqual(t, point, 1.0)
		assert.LessOrEqual(t, point, CrashMaxPoint)
	}
}

func TestEngineVerificationRoundTrip(t *testing.T) {
	engine := NewEngine(testServerSeed)

	assert.Equal(t, testServerSeed, engine.ServerSeed())
	assert.NotEmpty(t, engine.ServerSeedHash())
	assert.NotEqual(t, engine.ServerSeed(), engine.ServerSeedHash())

	// A verifier recomputes the same outcome from the disclosed seed.
	roll, win := engine.Coinflip(testClientSeed, 3)
	verifyRoll, verifyWin := Coinflip(testServerSeed, testClientSeed, 3)
	assert.Equal(t, roll, verifyRoll)
	assert.Equal(t, win, verifyWin)

	hash := engine.ResultHash(testClientSeed, 3)
	assert.Equal(t, hash, ResultHash(testServerSeed, testClientSeed, 3))
	assert.Len(t, hash, 64)
}

func TestEngineRotateDisclosesOldSeed(t *testing.T) {
	engine := NewEngine("")
	oldSeed := engine.ServerSeed()
	require.NotEmpty(t, oldSeed)

	disclosed := engine.Rotate(GenerateServerSeed())
	assert.Equal(t, oldSeed, disclosed)
	assert.NotEqual(t, oldSeed, engine.ServerSeed())
}

func TestDrawTicketProportionalToStake(t *testing.T) {
	engine := NewEngine(testServerSeed)

	// Two entrants with stakes 10 and 90: the 90 entrant owns tickets
	// [10, 100) and should win about 90% of rounds.
	bigWins := 0
	trials := 5000
	for i := 0; i < trials; i++ {
		roundSeed := fmt.Sprintf("round-%d", i)
		ticket := engine.DrawTicket(roundSeed, 100)
		require.GreaterOrEqual(t, ticket, 0.0)
		require.Less(t, ticket, 100.0)
		if ticket >= 10 {
			bigWins++
		}
	}

	assert.InDelta(t, 0.9, float64(bigWins)/float64(trials), 0.02)
}
