package games

// Broadcaster decouples game settlement from the websocket hub. Notify
// targets one account's connections, Broadcast fans out to everyone.
type Broadcaster interface {
	Notify(accountID, event string, payload interface{})
	Broadcast(event string, payload interface{})
}

const (
	EventWagerSettled    = "wager_settled"
	EventBigWin          = "big_win"
	EventSessionExpired  = "session_expired"
	EventJackpotJoined   = "jackpot_joined"
	EventJackpotLeft     = "jackpot_left"
	EventJackpotLocked   = "jackpot_locked"
	EventJackpotResolved = "jackpot_resolved"
)

// NopBroadcaster drops every event. Used when no hub is wired in.
type NopBroadcaster struct{}

func (NopBroadcaster) Notify(accountID, event string, payload interface{}) {}

func (NopBroadcaster) Broadcast(event string, payload interface{}) {}
