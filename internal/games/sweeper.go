package games

import (
	"context"
	"log"
	"time"

	"github.com/doyalikess/stakehouse/internal/models"
)

const (
	DefaultSweepInterval = time.Minute
	DefaultMaxIdle       = 10 * time.Minute
)

// Sweeper periodically expires abandoned sessions. An expired round refunds
// the stake and voids the wager, so walking away from a board never burns
// the money staked on it.
type Sweeper struct {
	core     *Core
	interval time.Duration
	maxIdle  time.Duration
	stop     chan struct{}
}

func NewSweeper(core *Core, interval, maxIdle time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Sweeper{
		core:     core,
		interval: interval,
		maxIdle:  maxIdle,
		stop:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if count, err := s.Sweep(context.Background()); err != nil {
					log.Printf("session sweep failed: %v", err)
				} else if count > 0 {
					log.Printf("expired %d idle sessions", count)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stop)
}

// Sweep expires every session idle past the threshold and returns how many
// were cleaned up.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	stale, err := s.core.sessions.Stale(ctx, s.maxIdle)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, session := range stale {
		if err := s.expire(ctx, session); err != nil {
			log.Printf("failed to expire session %s/%s: %v", session.AccountID, session.GameType, err)
			continue
		}
		count++
	}
	return count, nil
}

func (s *Sweeper) expire(ctx context.Context, session *models.Session) error {
	unlock := s.core.lockAccount(session.AccountID)
	defer unlock()

	// Re-check under the lock; the round may have settled since listing.
	current, err := s.core.sessions.Get(ctx, session.AccountID, session.GameType)
	if err != nil {
		return nil
	}
	if current.WagerID != session.WagerID {
		return nil
	}

	wager, err := s.core.ledger.Get(ctx, session.WagerID)
	if err != nil {
		return err
	}
	if err := s.core.refund(ctx, wager); err != nil {
		return err
	}
	if err := s.core.sessions.Delete(ctx, session.AccountID, session.GameType); err != nil {
		return err
	}

	s.core.notify.Notify(session.AccountID, EventSessionExpired, map[string]interface{}{
		"game_type": session.GameType,
		"wager_id":  session.WagerID,
		"refunded":  session.BetAmount,
	})
	return nil
}
