package models

type GameType string

const (
	GameTypeCoinflip GameType = "coinflip"
	GameTypeRoulette GameType = "roulette"
	GameTypeLimbo    GameType = "limbo"
	GameTypeMines    GameType = "mines"
	GameTypeUpgrader GameType = "upgrader"
	GameTypeJackpot  GameType = "jackpot"
	GameTypeCrash    GameType = "crash"
)

const (
	MinesGridSize = 25
	MinesMinCount = 1
	MinesMaxCount = 24

	LimboMinTarget = 1.01
	LimboMaxTarget = 1000000.0

	UpgraderMinTarget = 1.01
	UpgraderMaxTarget = 1000.0
)

type CoinflipSide string

const (
	CoinflipHeads CoinflipSide = "heads"
	CoinflipTails CoinflipSide = "tails"
)

type RouletteColor string

const (
	RouletteRed   RouletteColor = "red"
	RouletteBlack RouletteColor = "black"
	RouletteGreen RouletteColor = "green"
)

type CoinflipRequest struct {
	Amount float64      `json:"amount" binding:"required,gt=0"`
	Choice CoinflipSide `json:"choice" binding:"required"`
}

type RouletteRequest struct {
	Amount float64       `json:"amount" binding:"required,gt=0"`
	Color  RouletteColor `json:"color" binding:"required"`
}

type LimboRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Target float64 `json:"target" binding:"required"`
}

type UpgraderRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Target float64 `json:"target" binding:"required"`
}

type CrashRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	AutoCashout float64 `json:"auto_cashout" binding:"required"`
}

type MinesStartRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	MineCount int     `json:"mine_count" binding:"required,min=1,max=24"`
}

type MinesRevealRequest struct {
	Position int `json:"position" binding:"min=0,max=24"`
}

type JackpotJoinRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// GameResult is the uniform settlement response shape shared by every game.
type GameResult struct {
	WagerID    string   `json:"wager_id"`
	GameType   GameType `json:"game_type"`
	Win        bool     `json:"win"`
	Multiplier float64  `json:"multiplier"`
	Payout     float64  `json:"payout"`
	Profit     float64  `json:"profit"`
	NewBalance float64  `json:"new_balance"`

	// Game specific extras
	Side       CoinflipSide  `json:"side,omitempty"`
	Pocket     int           `json:"pocket,omitempty"`
	Color      RouletteColor `json:"color,omitempty"`
	CrashPoint float64       `json:"crash_point,omitempty"`
	Roll       float64       `json:"roll,omitempty"`
	MineHit    int           `json:"mine_hit,omitempty"`
	Mines      []int         `json:"mines,omitempty"`
	ResultHash string        `json:"result_hash,omitempty"`
	ServerSeed string        `json:"server_seed,omitempty"`
	ClientSeed string        `json:"client_seed,omitempty"`
	Nonce      int64         `json:"nonce,omitempty"`
}

type VerificationData struct {
	ClientSeed     string `json:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	CurrentNonce   int64  `json:"current_nonce"`
}
