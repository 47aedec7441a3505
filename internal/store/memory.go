package store

import (
	"context"
	"sync"
	"time"

	"github.com/doyalikess/stakehouse/internal/models"
)

// Memory* stores are process-local implementations of the store interfaces,
// used in tests and single-instance deployments. All mutations happen under
// a lock so balance checks and updates are one atomic step, mirroring what
// the Redis scripts do server-side.

type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*models.Account)}
}

func (m *MemoryAccountStore) GetOrCreate(ctx context.Context, accountID, username string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account, ok := m.accounts[accountID]; ok {
		return cloneAccount(account), nil
	}

	account, err := models.NewAccount(accountID, username)
	if err != nil {
		return nil, err
	}
	m.accounts[accountID] = account
	return cloneAccount(account), nil
}

func (m *MemoryAccountStore) Get(ctx context.Context, accountID string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (m *MemoryAccountStore) DebitForStake(ctx context.Context, accountID string, amount float64) (*models.Account, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidStake
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, 0, ErrAccountNotFound
	}
	if account.Balance < amount {
		return nil, 0, ErrInsufficientBalance
	}

	account.Balance -= amount
	account.TotalWagered += amount
	nonce := account.Nonce
	account.Nonce++
	account.UpdatedAt = time.Now().Unix()

	return cloneAccount(account), nonce, nil
}

func (m *MemoryAccountStore) Credit(ctx context.Context, accountID string, amount float64, asWinnings bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	account.Balance += amount
	if asWinnings {
		account.TotalWon += amount
	}
	account.UpdatedAt = time.Now().Unix()

	return cloneAccount(account), nil
}

func (m *MemoryAccountStore) Debit(ctx context.Context, accountID string, amount float64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if account.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	account.Balance -= amount
	account.UpdatedAt = time.Now().Unix()

	return cloneAccount(account), nil
}

func (m *MemoryAccountStore) ApplyWagering(ctx context.Context, accountID string, stake float64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	account.ApplyWagering(stake)
	account.UpdatedAt = time.Now().Unix()

	return cloneAccount(account), nil
}

func (m *MemoryAccountStore) CreditReferral(ctx context.Context, referrerID string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[referrerID]
	if !ok {
		return ErrAccountNotFound
	}

	account.Balance += amount
	account.ReferralEarnings += amount
	account.UpdatedAt = time.Now().Unix()
	return nil
}

func (m *MemoryAccountStore) SetReferrer(ctx context.Context, accountID, referrerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if _, ok := m.accounts[referrerID]; !ok {
		return ErrAccountNotFound
	}

	account.ReferredBy = referrerID
	return nil
}

func (m *MemoryAccountStore) Deposit(ctx context.Context, accountID string, amount float64) (*models.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidStake
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	account.ApplyDeposit(amount)
	account.UpdatedAt = time.Now().Unix()

	return cloneAccount(account), nil
}

func (m *MemoryAccountStore) Withdraw(ctx context.Context, accountID string, amount float64) (*models.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidStake
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if !account.CanWithdraw() {
		return nil, ErrWithdrawLocked
	}
	if account.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	account.Balance -= amount
	account.UpdatedAt = time.Now().Unix()

	return cloneAccount(account), nil
}

func (m *MemoryAccountStore) SetClientSeed(ctx context.Context, accountID, clientSeed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}

	account.ClientSeed = clientSeed
	return nil
}

type MemoryLedger struct {
	mu     sync.RWMutex
	wagers map[string]*models.Wager
	order  []string // wager ids in append order
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{wagers: make(map[string]*models.Wager)}
}

func (m *MemoryLedger) CreatePending(ctx context.Context, wager *models.Wager) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := cloneWager(wager)
	w.Outcome = models.OutcomePending
	m.wagers[w.ID] = w
	m.order = append(m.order, w.ID)
	return nil
}

func (m *MemoryLedger) Get(ctx context.Context, wagerID string) (*models.Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wager, ok := m.wagers[wagerID]
	if !ok {
		return nil, ErrWagerNotFound
	}
	return cloneWager(wager), nil
}

func (m *MemoryLedger) Settle(ctx context.Context, wagerID string, set models.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wager, ok := m.wagers[wagerID]
	if !ok {
		return ErrWagerNotFound
	}
	if wager.Settled() {
		return ErrAlreadySettled
	}

	wager.Settle(set)
	return nil
}

func (m *MemoryLedger) Void(ctx context.Context, wagerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wager, ok := m.wagers[wagerID]
	if !ok {
		return ErrWagerNotFound
	}
	if wager.Settled() {
		return ErrAlreadySettled
	}

	wager.Outcome = models.OutcomeVoid
	wager.CompletedAt = time.Now().Unix()
	return nil
}

func (m *MemoryLedger) History(ctx context.Context, accountID string, limit int) ([]*models.Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Wager
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		wager := m.wagers[m.order[i]]
		if wager.AccountID == accountID {
			out = append(out, cloneWager(wager))
		}
	}
	return out, nil
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*models.Session)}
}

func sessionKey(accountID string, gameType models.GameType) string {
	return accountID + ":" + string(gameType)
}

func (m *MemorySessionStore) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(session.AccountID, session.GameType)
	if _, ok := m.sessions[key]; ok {
		return ErrSessionConflict
	}

	m.sessions[key] = cloneSession(session)
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, accountID string, gameType models.GameType) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionKey(accountID, gameType)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (m *MemorySessionStore) Update(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(session.AccountID, session.GameType)
	if _, ok := m.sessions[key]; !ok {
		return ErrSessionNotFound
	}

	m.sessions[key] = cloneSession(session)
	return nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, accountID string, gameType models.GameType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionKey(accountID, gameType))
	return nil
}

func (m *MemorySessionStore) Stale(ctx context.Context, maxIdle time.Duration) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-maxIdle).Unix()
	var out []*models.Session
	for _, session := range m.sessions {
		if session.LastAction <= cutoff {
			out = append(out, cloneSession(session))
		}
	}
	return out, nil
}

type MemoryRateLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{hits: make(map[string][]time.Time)}
}

func (m *MemoryRateLimiter) Allow(ctx context.Context, accountID, action string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := accountID + ":" + action
	now := time.Now()
	cutoff := now.Add(-window)

	var kept []time.Time
	for _, hit := range m.hits[key] {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	kept = append(kept, now)
	m.hits[key] = kept

	return len(kept) <= limit, nil
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func cloneWager(w *models.Wager) *models.Wager {
	c := *w
	return &c
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	c.Mines = append([]int(nil), s.Mines...)
	c.Revealed = append([]int(nil), s.Revealed...)
	return &c
}
