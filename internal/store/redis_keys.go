package store

import "time"

const (
	KeyAccount        = "account:%s"
	KeyWager          = "wager:%s"
	KeyAccountWagers  = "account:%s:wagers"
	KeySession        = "session:%s:%s"
	KeyActiveSessions = "sessions:active"
	KeyRateLimit      = "ratelimit:%s:%s"

	TTLWager = 30 * 24 * time.Hour // 30 days of hot history; postgres keeps the rest

	// Keep only the most recent entries in the per-account wager index.
	wagerIndexKeep = 200
)
