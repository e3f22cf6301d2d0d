package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/expense-service/internal/filter"
	"github.com/Dan9191/expense-service/internal/models"
)

// Memory is a process-local store with the same semantics as Repository.
// It backs STORAGE=memory and the test suites.
type Memory struct {
	mu       sync.RWMutex
	users    map[int64]models.User
	txs      map[int64]models.Transaction
	nextUser int64
	nextTx   int64
	last     time.Time
	now      func() time.Time
}

// NewMemory returns an empty store
func NewMemory() *Memory {
	return &Memory{
		users: map[int64]models.User{},
		txs:   map[int64]models.Transaction{},
		now:   time.Now,
	}
}

// Migrate is a no-op; there is no schema to apply
func (m *Memory) Migrate(context.Context) error { return nil }

// stamp returns a timestamp strictly later than any it returned before.
// Callers hold m.mu.
func (m *Memory) stamp() time.Time {
	now := m.now().UTC()
	if !now.After(m.last) {
		now = m.last.Add(time.Microsecond)
	}
	m.last = now
	return now
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	m.nextUser++
	user.ID = m.nextUser
	user.CreatedAt = m.stamp()
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) CreateTransaction(_ context.Context, ownerID int64, f models.TransactionFields) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTx++
	now := m.stamp()
	tx := models.Transaction{ID: m.nextTx, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	setFields(&tx, f)
	m.txs[tx.ID] = tx
	return &tx, nil
}

func (m *Memory) FindTransactionByID(_ context.Context, id int64) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tx, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, id int64, f models.TransactionFields) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	setFields(&tx, f)
	tx.UpdatedAt = m.stamp()
	m.txs[id] = tx
	return &tx, nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txs[id]; !ok {
		return ErrNotFound
	}
	delete(m.txs, id)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, q models.TransactionQuery) (int, []models.Transaction, error) {
	m.mu.RLock()
	all := make([]models.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		all = append(all, tx)
	}
	m.mu.RUnlock()

	count, txs := filter.Apply(all, q)
	return count, txs, nil
}

func setFields(tx *models.Transaction, f models.TransactionFields) {
	tx.Title = f.Title
	if f.Description != nil {
		d := *f.Description
		tx.Description = &d
	} else {
		tx.Description = nil
	}
	tx.Amount = f.Amount
	tx.TransactionType = f.TransactionType
	tx.Tax = f.Tax
	tx.TaxType = f.TaxType
}
