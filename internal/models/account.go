package models

import "time"

// WagerRequirementMultiplier controls how many times deposited funds must be
// wagered before withdrawal is allowed.
const WagerRequirementMultiplier = 1.0

type Account struct {
	ID       string `json:"id" redis:"id"`
	Username string `json:"username" redis:"username"`

	Balance      float64 `json:"balance" redis:"balance"`
	TotalWagered float64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon     float64 `json:"total_won" redis:"total_won"`

	ReferredBy       string  `json:"referred_by,omitempty" redis:"referred_by"`
	ReferralEarnings float64 `json:"referral_earnings" redis:"referral_earnings"`

	TotalDeposited      float64 `json:"total_deposited" redis:"total_deposited"`
	WageredSinceDeposit float64 `json:"wagered_since_deposit" redis:"wagered_since_deposit"`
	UnwageredAmount     float64 `json:"unwagered_amount" redis:"unwagered_amount"`

	// Provably fair seeds
	ClientSeed string `json:"client_seed" redis:"client_seed"`
	Nonce      int64  `json:"nonce" redis:"nonce"`

	Banned    bool  `json:"banned" redis:"banned"`
	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

func NewAccount(id, username string) (*Account, error) {
	clientSeed, err := GenerateClientSeed()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	return &Account{
		ID:         id,
		Username:   username,
		Balance:    0,
		ClientSeed: clientSeed,
		Nonce:      0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// RequiredWagering is the total amount that must be staked before the current
// deposit cycle unlocks withdrawals.
func (a *Account) RequiredWagering() float64 {
	return a.TotalDeposited * WagerRequirementMultiplier
}

// RemainingWagering is how much still has to be staked in the current cycle.
func (a *Account) RemainingWagering() float64 {
	remaining := a.RequiredWagering() - a.WageredSinceDeposit
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (a *Account) CanWithdraw() bool {
	return a.RemainingWagering() == 0
}

// ApplyWagering records a settled stake against the wagering requirement.
// When the requirement is fully met both counters reset to zero; the cycle is
// all-or-nothing rather than carrying a remainder.
func (a *Account) ApplyWagering(stake float64) {
	if stake <= 0 {
		return
	}

	a.WageredSinceDeposit += stake
	a.UnwageredAmount -= stake
	if a.UnwageredAmount < 0 {
		a.UnwageredAmount = 0
	}

	if a.TotalDeposited > 0 && a.WageredSinceDeposit >= a.RequiredWagering() {
		a.TotalDeposited = 0
		a.WageredSinceDeposit = 0
		a.UnwageredAmount = 0
	}
}

// ApplyDeposit credits the balance and resets the wagering baseline for the
// new funds.
func (a *Account) ApplyDeposit(amount float64) {
	a.Balance += amount
	a.TotalDeposited += amount
	a.UnwageredAmount += amount
}

var levelThresholds = []float64{0, 100, 500, 2500, 10000, 50000, 250000, 1000000}

// Level is derived from lifetime wagered volume and never decreases.
func (a *Account) Level() int {
	level := 0
	for i, threshold := range levelThresholds {
		if a.TotalWagered >= threshold {
			level = i
		}
	}
	return level
}
