package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateWagerID() string {
	return fmt.Sprintf("wager_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateRoundID() string {
	return fmt.Sprintf("round_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16) // 128 bits of entropy
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

func (r *CoinflipRequest) Validate() error {
	if r.Choice != CoinflipHeads && r.Choice != CoinflipTails {
		return fmt.Errorf("invalid coinflip choice: %s", r.Choice)
	}
	return nil
}

func (r *RouletteRequest) Validate() error {
	switch r.Color {
	case RouletteRed, RouletteBlack, RouletteGreen:
		return nil
	}
	return fmt.Errorf("invalid roulette color: %s", r.Color)
}

func (r *LimboRequest) Validate() error {
	if r.Target < LimboMinTarget || r.Target > LimboMaxTarget {
		return fmt.Errorf("limbo target must be between %.2f and %.0f", LimboMinTarget, LimboMaxTarget)
	}
	return nil
}

func (r *UpgraderRequest) Validate() error {
	if r.Target < UpgraderMinTarget || r.Target > UpgraderMaxTarget {
		return fmt.Errorf("upgrader target must be between %.2f and %.0f", UpgraderMinTarget, UpgraderMaxTarget)
	}
	return nil
}

func (r *CrashRequest) Validate() error {
	if r.AutoCashout < 1.01 {
		return fmt.Errorf("auto cashout must be at least 1.01")
	}
	return nil
}

func (r *MinesStartRequest) Validate() error {
	if r.MineCount < MinesMinCount || r.MineCount > MinesMaxCount {
		return fmt.Errorf("mine count must be between %d and %d", MinesMinCount, MinesMaxCount)
	}
	return nil
}

func CalculatePayout(betAmount, multiplier float64) float64 {
	return betAmount * multiplier
}

func FormatCurrency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}
