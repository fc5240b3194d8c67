package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps accounts in process memory. It is meant for local
// development without a database.
type MemoryRepo struct {
	mu     sync.RWMutex
	byMail map[string]Account
	nextID int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byMail: make(map[string]Account), nextID: 1}
}

func (m *MemoryRepo) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byMail[normalize(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byMail[normalize(email)]
	return ok, nil
}

func (m *MemoryRepo) Create(_ context.Context, a Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Email = normalize(a.Email)
	if _, ok := m.byMail[a.Email]; ok {
		return nil, ErrExists
	}
	if a.Role == "" {
		a.Role = DefaultRole
	}
	a.ID = m.nextID
	m.nextID++
	a.CreatedAt = time.Now().UTC()
	m.byMail[a.Email] = a
	return &a, nil
}

func (m *MemoryRepo) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, a := range m.byMail {
		if a.ID == id {
			a.PasswordHash = hash
			m.byMail[k] = a
			return nil
		}
	}
	return ErrNotFound
}
