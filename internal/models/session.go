package models

import "time"

type SessionStatus string

const (
	SessionOngoing  SessionStatus = "ongoing"
	SessionResolved SessionStatus = "resolved"
)

// Session is the transient state of one in-progress multi-step game (mines).
// At most one ongoing session exists per (account, game type) pair, and an
// ongoing session always has a corresponding pending wager.
type Session struct {
	AccountID string   `json:"account_id" redis:"account_id"`
	GameType  GameType `json:"game_type" redis:"game_type"`
	WagerID   string   `json:"wager_id" redis:"wager_id"`
	BetAmount float64  `json:"bet_amount" redis:"bet_amount"`

	Multiplier float64       `json:"multiplier" redis:"multiplier"`
	Status     SessionStatus `json:"status" redis:"status"`

	// Mines state. Mine positions are never sent to the client while the
	// session is ongoing.
	MineCount int   `json:"mine_count,omitempty" redis:"mine_count"`
	Mines     []int `json:"mines,omitempty" redis:"mines"`
	Revealed  []int `json:"revealed,omitempty" redis:"revealed"`

	StartedAt  int64 `json:"started_at" redis:"started_at"`
	LastAction int64 `json:"last_action" redis:"last_action"`
}

func (s *Session) Touch() {
	s.LastAction = time.Now().Unix()
}

func (s *Session) HasRevealed(position int) bool {
	for _, p := range s.Revealed {
		if p == position {
			return true
		}
	}
	return false
}

func (s *Session) IsMine(position int) bool {
	for _, p := range s.Mines {
		if p == position {
			return true
		}
	}
	return false
}

// SafeTilesLeft is how many non-mine tiles remain hidden.
func (s *Session) SafeTilesLeft() int {
	return MinesGridSize - s.MineCount - len(s.Revealed)
}
