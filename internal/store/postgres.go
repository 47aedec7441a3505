package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/doyalikess/stakehouse/internal/models"
)

// WagerRecord is the durable row behind a ledger entry. Amounts are stored
// as numeric columns; the float boundary is crossed only here.
type WagerRecord struct {
	WagerID    string          `gorm:"column:wager_id;primaryKey;type:varchar(64)"`
	AccountID  string          `gorm:"column:account_id;type:varchar(64);not null;index"`
	GameType   string          `gorm:"column:game_type;type:varchar(20);not null"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	Outcome    string          `gorm:"column:outcome;type:varchar(10);not null;default:'pending'"`
	Profit     decimal.Decimal `gorm:"column:profit;type:numeric(20,2);not null;default:0"`
	Multiplier decimal.Decimal `gorm:"column:multiplier;type:numeric(12,4);not null;default:0"`

	ClientSeed     string `gorm:"column:client_seed;type:varchar(128)"`
	ServerSeedHash string `gorm:"column:server_seed_hash;type:varchar(128)"`
	ServerSeed     string `gorm:"column:server_seed;type:varchar(128)"`
	ResultHash     string `gorm:"column:result_hash;type:varchar(128)"`
	Nonce          int64  `gorm:"column:nonce;not null;default:0"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

func (WagerRecord) TableName() string {
	return "wagers"
}

// PostgresLedger is the durable append-only wager ledger.
type PostgresLedger struct {
	db *gorm.DB
}

func NewPostgresLedger(dsn string) (*PostgresLedger, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %v", err)
	}

	if err := db.AutoMigrate(&WagerRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate wagers table: %v", err)
	}

	return &PostgresLedger{db: db}, nil
}

func (l *PostgresLedger) CreatePending(ctx context.Context, wager *models.Wager) error {
	record := &WagerRecord{
		WagerID:        wager.ID,
		AccountID:      wager.AccountID,
		GameType:       string(wager.GameType),
		Amount:         decimal.NewFromFloat(wager.Amount),
		Outcome:        string(models.OutcomePending),
		ClientSeed:     wager.ClientSeed,
		ServerSeedHash: wager.ServerSeedHash,
		Nonce:          wager.Nonce,
		CreatedAt:      time.Unix(wager.CreatedAt, 0),
	}

	return l.db.WithContext(ctx).Create(record).Error
}

func (l *PostgresLedger) Get(ctx context.Context, wagerID string) (*models.Wager, error) {
	var record WagerRecord
	err := l.db.WithContext(ctx).Where("wager_id = ?", wagerID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWagerNotFound
		}
		return nil, err
	}
	return record.toModel(), nil
}

// Settle closes a pending wager exactly once. The pending check rides in the
// UPDATE's WHERE clause so two concurrent settlements cannot both apply.
func (l *PostgresLedger) Settle(ctx context.Context, wagerID string, set models.Settlement) error {
	now := time.Now()

	result := l.db.WithContext(ctx).Model(&WagerRecord{}).
		Where("wager_id = ? AND outcome = ?", wagerID, string(models.OutcomePending)).
		Updates(map[string]interface{}{
			"outcome":      string(set.Outcome),
			"profit":       decimal.NewFromFloat(set.Profit),
			"multiplier":   decimal.NewFromFloat(set.Multiplier),
			"server_seed":  set.ServerSeed,
			"result_hash":  set.ResultHash,
			"completed_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := l.db.WithContext(ctx).Model(&WagerRecord{}).
			Where("wager_id = ?", wagerID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrWagerNotFound
		}
		return ErrAlreadySettled
	}
	return nil
}

func (l *PostgresLedger) Void(ctx context.Context, wagerID string) error {
	return l.Settle(ctx, wagerID, models.Settlement{Outcome: models.OutcomeVoid})
}

func (l *PostgresLedger) History(ctx context.Context, accountID string, limit int) ([]*models.Wager, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var records []WagerRecord
	err := l.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	wagers := make([]*models.Wager, 0, len(records))
	for i := range records {
		wagers = append(wagers, records[i].toModel())
	}
	return wagers, nil
}

func (r *WagerRecord) toModel() *models.Wager {
	wager := &models.Wager{
		ID:             r.WagerID,
		AccountID:      r.AccountID,
		GameType:       models.GameType(r.GameType),
		Amount:         r.Amount.InexactFloat64(),
		Outcome:        models.Outcome(r.Outcome),
		Profit:         r.Profit.InexactFloat64(),
		Multiplier:     r.Multiplier.InexactFloat64(),
		ClientSeed:     r.ClientSeed,
		ServerSeedHash: r.ServerSeedHash,
		ServerSeed:     r.ServerSeed,
		ResultHash:     r.ResultHash,
		Nonce:          r.Nonce,
		CreatedAt:      r.CreatedAt.Unix(),
	}
	if r.CompletedAt != nil {
		wager.CompletedAt = r.CompletedAt.Unix()
	}
	return wager
}
