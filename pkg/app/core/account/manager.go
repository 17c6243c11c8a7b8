package account

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uhyunpark/cryptex/pkg/app/core"
	"github.com/uhyunpark/cryptex/pkg/app/core/wallet"
)

// Manager keeps every registered user in a thread-safe manner.
// Users are created once and never removed.
type Manager struct {
	mu      sync.RWMutex
	users   map[string]*User // id -> user
	byEmail map[string]string
	order   []string // registration order

	symbols []string // assets every new wallet is initialised with
	now     func() time.Time
}

// NewManager creates a manager whose wallets hold the given asset symbols
func NewManager(symbols []string, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	s := make([]string, len(symbols))
	copy(s, symbols)
	return &Manager{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		symbols: s,
		now:     now,
	}
}

// Open registers a new user with an empty wallet
func (m *Manager) Open(name, email string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byEmail[email]; taken {
		return nil, fmt.Errorf("%w: %s", core.ErrEmailInUse, email)
	}

	u := &User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Wallet:    wallet.New(m.symbols),
		CreatedAt: m.now(),
	}
	m.users[u.ID] = u
	m.byEmail[email] = u.ID
	m.order = append(m.order, u.ID)
	return u, nil
}

// Get returns a user by id
func (m *Manager) Get(id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownUser, id)
	}
	return u, nil
}

// FindByEmail looks a user up by email (case-insensitive)
func (m *Manager) FindByEmail(email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownUser, email)
	}
	return m.users[id], nil
}

// List returns all users in registration order
func (m *Manager) List() []*User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*User, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.users[id])
	}
	return out
}

// Count returns the number of registered users
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}
