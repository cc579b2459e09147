package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
	now     func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (m *Memory) Create(_ context.Context, in NewAccount) (Account, error) {
	email := NormalizeEmail(in.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return Account{}, ErrDuplicateEmail
	}

	now := m.now().UTC()
	acc := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[acc.ID] = acc
	m.byEmail[email] = acc.ID
	return acc, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) UpdatePassword(_ context.Context, id, passwordHash string) (Account, error) {
	return m.update(id, func(acc *Account) { acc.PasswordHash = passwordHash })
}

func (m *Memory) UpdateRole(_ context.Context, id, role string) (Account, error) {
	return m.update(id, func(acc *Account) { acc.Role = role })
}

func (m *Memory) SetDeleted(_ context.Context, id string, deleted bool) (Account, error) {
	return m.update(id, func(acc *Account) { acc.Deleted = deleted })
}

func (m *Memory) update(id string, mutate func(*Account)) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	mutate(&acc)
	acc.Version++
	acc.UpdatedAt = m.now().UTC()
	m.byID[id] = acc
	return acc, nil
}
