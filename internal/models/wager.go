package models

import "time"

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeVoid    Outcome = "void"
)

// Wager is one stake-to-resolution ledger entry. Once the outcome leaves
// pending the record is immutable.
type Wager struct {
	ID        string   `json:"id" redis:"id"`
	AccountID string   `json:"account_id" redis:"account_id"`
	GameType  GameType `json:"game_type" redis:"game_type"`
	Amount    float64  `json:"amount" redis:"amount"`

	Outcome    Outcome `json:"outcome" redis:"outcome"`
	Profit     float64 `json:"profit" redis:"profit"`
	Multiplier float64 `json:"multiplier" redis:"multiplier"`

	// Provably fair audit trail. The server seed hash is committed at stake
	// time; the seed itself and the result hash are disclosed at settlement.
	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	ServerSeed     string `json:"server_seed,omitempty" redis:"server_seed"`
	ResultHash     string `json:"result_hash,omitempty" redis:"result_hash"`
	Nonce          int64  `json:"nonce" redis:"nonce"`

	CreatedAt   int64 `json:"created_at" redis:"created_at"`
	CompletedAt int64 `json:"completed_at,omitempty" redis:"completed_at"`
}

// Settlement carries everything a pending wager needs to close out.
type Settlement struct {
	Outcome    Outcome
	Profit     float64
	Multiplier float64
	ServerSeed string
	ResultHash string
}

func (w *Wager) Settled() bool {
	return w.Outcome != OutcomePending
}

func (w *Wager) Settle(set Settlement) {
	w.Outcome = set.Outcome
	w.Profit = set.Profit
	w.Multiplier = set.Multiplier
	w.ServerSeed = set.ServerSeed
	w.ResultHash = set.ResultHash
	w.CompletedAt = time.Now().Unix()
}
