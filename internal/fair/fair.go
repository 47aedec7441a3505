package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"

	"github.com/doyalikess/stakehouse/internal/models"
)

const (
	// Coinflip pays 2.00x but wins strictly less than half the time; the gap
	// is the house edge.
	CoinflipWinProbability = 0.495
	CoinflipPayout         = 2.0

	houseEdge = 0.99 // 1% edge, applied as a payout/probability skew

	RoulettePockets      = 15
	RouletteColorPayout  = 2.0
	RouletteGreenPayout  = 14.0
	rouletteGreenPocket  = 0
	rouletteRedLastIndex = 7

	CrashMaxPoint = 1000.0
)

// Engine derives every game outcome from the house server seed. Outcomes are
// reproducible by anyone holding the disclosed seed.
type Engine struct {
	serverSeed string
}

func NewEngine(serverSeed string) *Engine {
	if serverSeed == "" {
		serverSeed = GenerateServerSeed()
	}
	return &Engine{serverSeed: serverSeed}
}

func GenerateServerSeed() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand failing is unrecoverable for a fairness engine
		panic(fmt.Sprintf("fair: server seed generation failed: %v", err))
	}
	return hex.EncodeToString(bytes)
}

func (e *Engine) ServerSeed() string {
	return e.serverSeed
}

func (e *Engine) ServerSeedHash() string {
	hash := sha256.Sum256([]byte(e.serverSeed))
	return hex.EncodeToString(hash[:])
}

// Rotate swaps in a new server seed. The old one should be disclosed so
// players can audit past rounds.
func (e *Engine) Rotate(newSeed string) string {
	old := e.serverSeed
	e.serverSeed = newSeed
	return old
}

func (e *Engine) Coinflip(clientSeed string, nonce int64) (roll float64, win bool) {
	return Coinflip(e.serverSeed, clientSeed, nonce)
}

func (e *Engine) LimboCrash(clientSeed string, nonce int64) float64 {
	return LimboCrash(e.serverSeed, clientSeed, nonce)
}

func (e *Engine) MinePositions(clientSeed string, nonce int64, mineCount int) []int {
	return MinePositions(e.serverSeed, clientSeed, nonce, mineCount)
}

func (e *Engine) RoulettePocket(clientSeed string, nonce int64) int {
	return RoulettePocket(e.serverSeed, clientSeed, nonce)
}

func (e *Engine) UpgraderRoll(clientSeed string, nonce int64) float64 {
	return Floats(e.serverSeed, clientSeed, nonce, 1)[0]
}

func (e *Engine) CrashPoint(clientSeed string, nonce int64) float64 {
	return CrashPoint(e.serverSeed, clientSeed, nonce)
}

// DrawTicket maps the round seeds to a winning ticket in [0, pot).
func (e *Engine) DrawTicket(roundSeed string, pot float64) float64 {
	f := Floats(e.serverSeed, roundSeed, 0, 1)[0]
	return f * pot
}

func (e *Engine) ResultHash(clientSeed string, nonce int64) string {
	return ResultHash(e.serverSeed, clientSeed, nonce)
}

// Coinflip draws one float; the player wins when it lands under the win
// threshold, regardless of the side they called.
func Coinflip(serverSeed, clientSeed string, nonce int64) (roll float64, win bool) {
	roll = Floats(serverSeed, clientSeed, nonce, 1)[0]
	return roll, roll < CoinflipWinProbability
}

// LimboCrash maps a uniform draw through the inverse-power transform used by
// crash-style games: P(crash >= t) ~ 1/t, skewed down by the house edge and
// floored to two decimals.
func LimboCrash(serverSeed, clientSeed string, nonce int64) float64 {
	f := Floats(serverSeed, clientSeed, nonce, 1)[0]
	if f <= 0 {
		return models.LimboMaxTarget
	}

	floatPoint := 1e8 / (f * 1e8) * houseEdge
	crashPoint := math.Floor(floatPoint*100) / 100

	if crashPoint < 1.0 {
		crashPoint = 1.0
	}
	if crashPoint > models.LimboMaxTarget {
		crashPoint = models.LimboMaxTarget
	}

	return crashPoint
}

// MinePositions selects mineCount unique tiles from the 25-tile grid with a
// Fisher-Yates pass over the float stream, so every K-subset is equally
// likely.
func MinePositions(serverSeed, clientSeed string, nonce int64, mineCount int) []int {
	if mineCount < models.MinesMinCount {
		mineCount = models.MinesMinCount
	}
	if mineCount > models.MinesMaxCount {
		mineCount = models.MinesMaxCount
	}

	floats := Floats(serverSeed, clientSeed, nonce, models.MinesGridSize-1)

	pool := make([]int, models.MinesGridSize)
	for i := range pool {
		pool[i] = i
	}

	mines := make([]int, 0, mineCount)
	for i := 0; i < mineCount; i++ {
		index := int(math.Floor(floats[i] * float64(len(pool))))
		if index >= len(pool) {
			index = len(pool) - 1
		}
		mines = append(mines, pool[index])
		pool = append(pool[:index], pool[index+1:]...)
	}

	return mines
}

// MinesMultiplier is the payout multiplier after `revealed` safe reveals with
// `mineCount` mines on the board. Each reveal multiplies by the inverse of
// the survival probability; the house edge is applied once. When no safe
// tiles remain the multiplier is flat at its maximum.
func MinesMultiplier(mineCount, revealed int) float64 {
	if revealed <= 0 {
		return 1.0
	}

	mult := 1.0
	for i := 0; i < revealed; i++ {
		tilesLeft := models.MinesGridSize - i
		safeLeft := models.MinesGridSize - mineCount - i
		if safeLeft <= 0 {
			break
		}
		mult *= float64(tilesLeft) / float64(safeLeft)
	}

	return math.Floor(mult*houseEdge*100) / 100
}

func RoulettePocket(serverSeed, clientSeed string, nonce int64) int {
	f := Floats(serverSeed, clientSeed, nonce, 1)[0]
	pocket := int(math.Floor(f * RoulettePockets))
	if pocket >= RoulettePockets {
		pocket = RoulettePockets - 1
	}
	return pocket
}

func PocketColor(pocket int) models.RouletteColor {
	switch {
	case pocket == rouletteGreenPocket:
		return models.RouletteGreen
	case pocket <= rouletteRedLastIndex:
		return models.RouletteRed
	default:
		return models.RouletteBlack
	}
}

func RoulettePayout(color models.RouletteColor) float64 {
	if color == models.RouletteGreen {
		return RouletteGreenPayout
	}
	return RouletteColorPayout
}

// UpgraderWinChance is 1/target before the edge skew; the payout stays at
// target so the edge lives entirely in the probability.
func UpgraderWinChance(target float64) float64 {
	if target <= 1.0 {
		return 0
	}
	return (1.0 / target) * houseEdge
}

func UpgraderWin(serverSeed, clientSeed string, nonce int64, target float64) (roll float64, win bool) {
	roll = Floats(serverSeed, clientSeed, nonce, 1)[0]
	return roll, roll < UpgraderWinChance(target)
}

// CrashPoint uses the 52-bit hash-prefix formula common to crash games.
func CrashPoint(serverSeed, clientSeed string, nonce int64) float64 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(fmt.Sprintf("%s:%d", clientSeed, nonce)))
	hash := hex.EncodeToString(h.Sum(nil))

	n := new(big.Int)
	n.SetString(hash[:13], 16)

	randFloat := float64(n.Int64()) / math.Pow(2, 52)
	crashPoint := math.Floor(100*houseEdge/(1-randFloat)) / 100.0

	if crashPoint < 1.0 {
		crashPoint = 1.0
	}
	if crashPoint > CrashMaxPoint {
		crashPoint = CrashMaxPoint
	}

	return crashPoint
}
