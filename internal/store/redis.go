package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doyalikess/stakehouse/internal/models"
)

// NewRedisClient connects and pings; balances live here in production, so a
// dead connection is fatal at startup.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return client, nil
}

// RedisAccountStore keeps each account as a JSON value and performs every
// balance mutation inside a Lua script, so the conditional check and the
// write are one atomic step even with many API instances.
type RedisAccountStore struct {
	client *redis.Client
}

func NewRedisAccountStore(client *redis.Client) *RedisAccountStore {
	return &RedisAccountStore{client: client}
}

var debitForStakeScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("account not found")
	end

	local acct = cjson.decode(data)

	if (acct.balance or 0) < amount then
		return redis.error_reply("insufficient balance")
	end

	acct.balance = acct.balance - amount
	acct.total_wagered = (acct.total_wagered or 0) + amount
	acct.nonce = (acct.nonce or 0) + 1
	acct.updated_at = now

	local updated = cjson.encode(acct)
	redis.call("SET", key, updated)

	return updated
`)

var creditScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local winnings = ARGV[2] == "true"
	local now = tonumber(ARGV[3])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("account not found")
	end

	local acct = cjson.decode(data)

	acct.balance = (acct.balance or 0) + amount
	if winnings then
		acct.total_won = (acct.total_won or 0) + amount
	end
	acct.updated_at = now

	local updated = cjson.encode(acct)
	redis.call("SET", key, updated)

	return updated
`)

var debitScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("account not found")
	end

	local acct = cjson.decode(data)

	if (acct.balance or 0) < amount then
		return redis.error_reply("insufficient balance")
	end

	acct.balance = acct.balance - amount
	acct.updated_at = now

	local updated = cjson.encode(acct)
	redis.call("SET", key, updated)

	return updated
`)

var applyWageringScript = redis.NewScript(`
	local key = KEYS[1]
	local stake = tonumber(ARGV[1])
	local mult = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("account not found")
	end

	local acct = cjson.decode(data)

	if stake > 0 then
		acct.wagered_since_deposit = (acct.wagered_since_deposit or 0) + stake
		acct.unwagered_amount = (acct.unwagered_amount or 0) - stake
		if acct.unwagered_amount < 0 then
			acct.unwagered_amount = 0
		end

		local deposited = acct.total_deposited or 0
		if deposited > 0 and acct.wagered_since_deposit >= deposited * mult then
			acct.total_deposited = 0
			acct.wagered_since_deposit = 0
			acct.unwagered_amount = 0
		end
	end

	acct.updated_at = now

	local updated = cjson.encode(acct)
	redis.call("SET", key, updated)

	return updated
`)

var creditReferralScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("account not found")
	end

	local acct = cjson.decode(data)

	acct.balance = (acct.balance or 0) + amount
	acct.referral_earnings = (acct.referral_earnings or 0) + amount
	acct.updated_at = now

	local updated = cjson.encode(acct)
	redis.call("SET", key, updated)

	return updated
`)

var depositScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("account not found")
	end

	local acct = cjson.decode(data)

	acct.balance = (acct.balance or 0) + amount
	acct.total_deposited = (acct.total_deposited or 0) + amount
	acct.unwagered_amount = (acct.unwagered_amount or 0) + amount
	acct.updated_at = now

	local updated = cjson.encode(acct)
	redis.call("SET", key, updated)

	return updated
`)

var withdrawScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local mult = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("account not found")
	end

	local acct = cjson.decode(data)

	local required = (acct.total_deposited or 0) * mult
	local wagered = acct.wagered_since_deposit or 0
	if required > 0 and wagered < required then
		return redis.error_reply("wagering requirement not met")
	end

	if (acct.balance or 0) < amount then
		return redis.error_reply("insufficient balance")
	end

	acct.balance = acct.balance - amount
	acct.updated_at = now

	local updated = cjson.encode(acct)
	redis.call("SET", key, updated)

	return updated
`)

func (s *RedisAccountStore) GetOrCreate(ctx context.Context, accountID, username string) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, accountID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		account, err := models.NewAccount(accountID, username)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(account)
		if err != nil {
			return nil, err
		}

		// NX so a concurrent signup on another instance wins cleanly.
		created, err := s.client.SetNX(ctx, key, payload, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to create account: %v", err)
		}
		if created {
			return account, nil
		}
		return s.Get(ctx, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &account, nil
}

func (s *RedisAccountStore) Get(ctx context.Context, accountID string) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, accountID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &account, nil
}

func (s *RedisAccountStore) runAccountScript(ctx context.Context, script *redis.Script, accountID string, args ...interface{}) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, accountID)

	raw, err := script.Run(ctx, s.client, []string{key}, args...).Result()
	if err != nil {
		return nil, mapRedisError(err)
	}

	data, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected script reply %T", raw)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &account, nil
}

func (s *RedisAccountStore) DebitForStake(ctx context.Context, accountID string, amount float64) (*models.Account, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidStake
	}

	account, err := s.runAccountScript(ctx, debitForStakeScript, accountID, amount, time.Now().Unix())
	if err != nil {
		return nil, 0, err
	}

	// The script already consumed the nonce; the stake resolves with the
	// pre-increment value.
	return account, account.Nonce - 1, nil
}

func (s *RedisAccountStore) Credit(ctx context.Context, accountID string, amount float64, asWinnings bool) (*models.Account, error) {
	return s.runAccountScript(ctx, creditScript, accountID,
		amount, fmt.Sprintf("%t", asWinnings), time.Now().Unix())
}

func (s *RedisAccountStore) Debit(ctx context.Context, accountID string, amount float64) (*models.Account, error) {
	return s.runAccountScript(ctx, debitScript, accountID, amount, time.Now().Unix())
}

func (s *RedisAccountStore) ApplyWagering(ctx context.Context, accountID string, stake float64) (*models.Account, error) {
	return s.runAccountScript(ctx, applyWageringScript, accountID,
		stake, models.WagerRequirementMultiplier, time.Now().Unix())
}

func (s *RedisAccountStore) CreditReferral(ctx context.Context, referrerID string, amount float64) error {
	_, err := s.runAccountScript(ctx, creditReferralScript, referrerID, amount, time.Now().Unix())
	return err
}

func (s *RedisAccountStore) SetReferrer(ctx context.Context, accountID, referrerID string) error {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := s.Get(ctx, referrerID); err != nil {
		return err
	}

	account.ReferredBy = referrerID

	payload, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyAccount, accountID), payload, 0).Err()
}

func (s *RedisAccountStore) Deposit(ctx context.Context, accountID string, amount float64) (*models.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidStake
	}
	return s.runAccountScript(ctx, depositScript, accountID, amount, time.Now().Unix())
}

func (s *RedisAccountStore) Withdraw(ctx context.Context, accountID string, amount float64) (*models.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidStake
	}
	return s.runAccountScript(ctx, withdrawScript, accountID,
		amount, models.WagerRequirementMultiplier, time.Now().Unix())
}

func (s *RedisAccountStore) SetClientSeed(ctx context.Context, accountID, clientSeed string) error {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	account.ClientSeed = clientSeed

	payload, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyAccount, accountID), payload, 0).Err()
}

// RedisLedger keeps the hot wager history; the postgres ledger is the
// durable record when configured.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

var settleWagerScript = redis.NewScript(`
	local key = KEYS[1]
	local payload = ARGV[1]

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wager not found")
	end

	local wager = cjson.decode(data)
	if wager.outcome ~= "pending" then
		return redis.error_reply("wager already settled")
	end

	redis.call("SET", key, payload, "KEEPTTL")
	return "OK"
`)

func (l *RedisLedger) CreatePending(ctx context.Context, wager *models.Wager) error {
	w := *wager
	w.Outcome = models.OutcomePending

	data, err := json.Marshal(&w)
	if err != nil {
		return fmt.Errorf("failed to marshal wager: %v", err)
	}

	key := fmt.Sprintf(KeyWager, w.ID)
	if err := l.client.Set(ctx, key, data, TTLWager).Err(); err != nil {
		return fmt.Errorf("failed to save wager: %v", err)
	}

	indexKey := fmt.Sprintf(KeyAccountWagers, w.AccountID)
	if err := l.client.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(w.CreatedAt),
		Member: w.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index wager: %v", err)
	}
	l.client.ZRemRangeByRank(ctx, indexKey, 0, -(wagerIndexKeep + 1))

	return nil
}

func (l *RedisLedger) Get(ctx context.Context, wagerID string) (*models.Wager, error) {
	key := fmt.Sprintf(KeyWager, wagerID)

	data, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrWagerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %v", err)
	}

	var wager models.Wager
	if err := json.Unmarshal([]byte(data), &wager); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wager: %v", err)
	}
	return &wager, nil
}

func (l *RedisLedger) Settle(ctx context.Context, wagerID string, set models.Settlement) error {
	wager, err := l.Get(ctx, wagerID)
	if err != nil {
		return err
	}
	if wager.Settled() {
		return ErrAlreadySettled
	}

	wager.Settle(set)

	payload, err := json.Marshal(wager)
	if err != nil {
		return fmt.Errorf("failed to marshal wager: %v", err)
	}

	// The script re-checks pending under the server-side lock, so two
	// concurrent settlements cannot both win.
	key := fmt.Sprintf(KeyWager, wagerID)
	if err := settleWagerScript.Run(ctx, l.client, []string{key}, string(payload)).Err(); err != nil {
		return mapRedisError(err)
	}
	return nil
}

func (l *RedisLedger) Void(ctx context.Context, wagerID string) error {
	return l.Settle(ctx, wagerID, models.Settlement{Outcome: models.OutcomeVoid})
}

func (l *RedisLedger) History(ctx context.Context, accountID string, limit int) ([]*models.Wager, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	indexKey := fmt.Sprintf(KeyAccountWagers, accountID)
	ids, err := l.client.ZRevRange(ctx, indexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wager ids: %v", err)
	}

	var wagers []*models.Wager
	for _, id := range ids {
		wager, err := l.Get(ctx, id)
		if err != nil {
			continue
		}
		wagers = append(wagers, wager)
	}
	return wagers, nil
}

// RedisSessionStore holds ongoing game sessions plus a ZSET of last-action
// timestamps so the idle sweeper can find stale ones.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) key(accountID string, gameType models.GameType) string {
	return fmt.Sprintf(KeySession, accountID, gameType)
}

func (s *RedisSessionStore) Create(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	key := s.key(session.AccountID, session.GameType)
	created, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %v", err)
	}
	if !created {
		return ErrSessionConflict
	}

	return s.client.ZAdd(ctx, KeyActiveSessions, redis.Z{
		Score:  float64(session.LastAction),
		Member: key,
	}).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, accountID string, gameType models.GameType) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.key(accountID, gameType)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Update(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	key := s.key(session.AccountID, session.GameType)
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update session: %v", err)
	}

	return s.client.ZAdd(ctx, KeyActiveSessions, redis.Z{
		Score:  float64(session.LastAction),
		Member: key,
	}).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, accountID string, gameType models.GameType) error {
	key := s.key(accountID, gameType)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return err
	}
	return s.client.ZRem(ctx, KeyActiveSessions, key).Err()
}

func (s *RedisSessionStore) Stale(ctx context.Context, maxIdle time.Duration) ([]*models.Session, error) {
	cutoff := time.Now().Add(-maxIdle).Unix()

	keys, err := s.client.ZRangeByScore(ctx, KeyActiveSessions, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %v", err)
	}

	var sessions []*models.Session
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Result()
		if err != nil {
			// Session gone but index entry lingered; clean it up.
			s.client.ZRem(ctx, KeyActiveSessions, key)
			continue
		}

		var session models.Session
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, accountID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, accountID, action)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// mapRedisError translates script error replies back to the store sentinels.
func mapRedisError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient balance"):
		return ErrInsufficientBalance
	case strings.Contains(msg, "account not found"):
		return ErrAccountNotFound
	case strings.Contains(msg, "wager not found"):
		return ErrWagerNotFound
	case strings.Contains(msg, "wager already settled"):
		return ErrAlreadySettled
	case strings.Contains(msg, "wagering requirement not met"):
		return ErrWithdrawLocked
	}
	return err
}
