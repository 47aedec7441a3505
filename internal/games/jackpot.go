package games

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/doyalikess/stakehouse/internal/models"
)

type JackpotPhase string

const (
	PhaseAccepting JackpotPhase = "accepting"
	PhaseLocked    JackpotPhase = "locked"
	PhaseResolving JackpotPhase = "resolving"
)

// DefaultLockDelay is how long a round stays open once it has enough
// entrants to run.
const DefaultLockDelay = 7 * time.Second

// jackpotMinEntrants is the entrant count that arms the countdown.
const jackpotMinEntrants = 2

type JackpotEntrant struct {
	AccountID string  `json:"account_id"`
	Username  string  `json:"username"`
	Amount    float64 `json:"amount"`
	WagerID   string  `json:"-"`
	JoinedAt  int64   `json:"joined_at"`
}

// JackpotRound is the public snapshot of the current round.
type JackpotRound struct {
	RoundID  string            `json:"round_id"`
	Phase    JackpotPhase      `json:"phase"`
	Pot      float64           `json:"pot"`
	Entrants []*JackpotEntrant `json:"entrants"`
}

// Jackpot runs a stake-weighted winner-takes-all pool. A round accepts
// entrants until the countdown fires, then locks, draws a ticket over the
// pot and pays the whole pot to the entrant holding it.
type Jackpot struct {
	core      *Core
	lockDelay time.Duration

	mu       sync.Mutex
	phase    JackpotPhase
	roundID  string
	entrants []*JackpotEntrant
	timer    *time.Timer
}

func NewJackpot(core *Core, lockDelay time.Duration) *Jackpot {
	if lockDelay <= 0 {
		lockDelay = DefaultLockDelay
	}
	return &Jackpot{
		core:      core,
		lockDelay: lockDelay,
		phase:     PhaseAccepting,
		roundID:   models.GenerateRoundID(),
	}
}

// Join stakes into the current round. Funds leave the balance immediately;
// one entry per account per round.
func (j *Jackpot) Join(ctx context.Context, accountID string, amount float64) (*JackpotRound, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.phase != PhaseAccepting {
		return nil, ErrRoundLocked
	}
	for _, entrant := range j.entrants {
		if entrant.AccountID == accountID {
			return nil, ErrAlreadyEntered
		}
	}

	account, wager, err := j.core.stake(ctx, accountID, models.GameTypeJackpot, amount)
	if err != nil {
		return nil, err
	}

	j.entrants = append(j.entrants, &JackpotEntrant{
		AccountID: accountID,
		Username:  account.Username,
		Amount:    amount,
		WagerID:   wager.ID,
		JoinedAt:  time.Now().Unix(),
	})

	if len(j.entrants) >= jackpotMinEntrants && j.timer == nil {
		j.timer = time.AfterFunc(j.lockDelay, j.closeRound)
	}

	round := j.snapshotLocked()
	j.core.notify.Broadcast(EventJackpotJoined, round)
	return round, nil
}

// Leave refunds an entrant. Only possible while the round is still
// accepting; once locked the stake rides to resolution.
func (j *Jackpot) Leave(ctx context.Context, accountID string) (*JackpotRound, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.phase != PhaseAccepting {
		return nil, ErrRoundLocked
	}

	index := -1
	for i, entrant := range j.entrants {
		if entrant.AccountID == accountID {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, ErrNotEntered
	}

	entrant := j.entrants[index]
	if err := j.core.refund(ctx, &models.Wager{
		ID:        entrant.WagerID,
		AccountID: entrant.AccountID,
		Amount:    entrant.Amount,
	}); err != nil {
		return nil, err
	}

	j.entrants = append(j.entrants[:index], j.entrants[index+1:]...)
	if len(j.entrants) < jackpotMinEntrants && j.timer != nil {
		j.timer.Stop()
		j.timer = nil
	}

	round := j.snapshotLocked()
	j.core.notify.Broadcast(EventJackpotLeft, round)
	return round, nil
}

// Round returns the current round snapshot.
func (j *Jackpot) Round() *JackpotRound {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Jackpot) snapshotLocked() *JackpotRound {
	pot := 0.0
	entrants := make([]*JackpotEntrant, len(j.entrants))
	for i, entrant := range j.entrants {
		pot += entrant.Amount
		clone := *entrant
		entrants[i] = &clone
	}
	return &JackpotRound{
		RoundID:  j.roundID,
		Phase:    j.phase,
		Pot:      pot,
		Entrants: entrants,
	}
}

func (j *Jackpot) closeRound() {
	j.mu.Lock()
	if j.phase != PhaseAccepting || len(j.entrants) < jackpotMinEntrants {
		j.timer = nil
		j.mu.Unlock()
		return
	}
	j.phase = PhaseLocked
	j.mu.Unlock()

	j.core.notify.Broadcast(EventJackpotLocked, j.Round())
	j.resolveRound()
}

// resolveRound draws the winning ticket over [0, pot) and walks entrants in
// join order; each account's win chance is exactly its share of the pot.
func (j *Jackpot) resolveRound() {
	ctx := context.Background()

	j.mu.Lock()
	j.phase = PhaseResolving
	roundID := j.roundID
	entrants := j.entrants
	j.mu.Unlock()

	pot := 0.0
	for _, entrant := range entrants {
		pot += entrant.Amount
	}

	ticket := j.core.engine.DrawTicket(roundID, pot)

	winner := entrants[len(entrants)-1]
	cumulative := 0.0
	for _, entrant := range entrants {
		cumulative += entrant.Amount
		if ticket < cumulative {
			winner = entrant
			break
		}
	}

	for _, entrant := range entrants {
		if err := j.settleEntrant(ctx, entrant, winner, pot); err != nil {
			log.Printf("jackpot %s: failed to settle entrant %s: %v", roundID, entrant.AccountID, err)
		}
	}

	j.core.notify.Broadcast(EventJackpotResolved, map[string]interface{}{
		"round_id": roundID,
		"winner":   winner.Username,
		"pot":      pot,
		"ticket":   ticket,
	})

	j.mu.Lock()
	j.phase = PhaseAccepting
	j.roundID = models.GenerateRoundID()
	j.entrants = nil
	j.timer = nil
	j.mu.Unlock()
}

func (j *Jackpot) settleEntrant(ctx context.Context, entrant, winner *JackpotEntrant, pot float64) error {
	account, err := j.core.accounts.Get(ctx, entrant.AccountID)
	if err != nil {
		return err
	}
	wager, err := j.core.ledger.Get(ctx, entrant.WagerID)
	if err != nil {
		return err
	}

	set := models.Settlement{
		Outcome: models.OutcomeLoss,
		Profit:  -entrant.Amount,
	}
	if entrant == winner {
		set.Outcome = models.OutcomeWin
		set.Profit = pot - entrant.Amount
		set.Multiplier = pot / entrant.Amount
	}

	newBalance, err := j.core.resolve(ctx, account, wager, set)
	if err != nil {
		return err
	}

	result := &models.GameResult{
		WagerID:    wager.ID,
		GameType:   models.GameTypeJackpot,
		Win:        entrant == winner,
		Multiplier: set.Multiplier,
		Payout:     models.CalculatePayout(entrant.Amount, set.Multiplier),
		Profit:     set.Profit,
		NewBalance: newBalance,
	}
	j.core.announce(entrant.AccountID, result)
	return nil
}
