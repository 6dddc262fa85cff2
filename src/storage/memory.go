package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/utils"
)

// MemoryStore is an in-memory Store used by tests and fixtures. It mirrors
// the sqlite implementation's ordering and commit semantics.
type MemoryStore struct {
	mu sync.RWMutex

	nextAccountID  int64
	nextMovementID int64
	nextBatchID    int64
	nextTransferID int64

	accounts  map[int64]models.Account
	movements map[int64]models.Movement
	batches   map[int64]models.ImportBatch
	transfers map[int64]models.Transfer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextAccountID:  1,
		nextMovementID: 1,
		nextBatchID:    1,
		nextTransferID: 1,
		accounts:       make(map[int64]models.Account),
		movements:      make(map[int64]models.Movement),
		batches:        make(map[int64]models.ImportBatch),
		transfers:      make(map[int64]models.Transfer),
	}
}

func (s *MemoryStore) Accounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (s *MemoryStore) Account(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) AddAccount(ctx context.Context, a models.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextAccountID
	s.nextAccountID++
	s.accounts[a.ID] = a
	return a.ID, nil
}

func (s *MemoryStore) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Balance = balance
	s.accounts[id] = a
	return nil
}

func sortMovements(movements []models.Movement) {
	sort.SliceStable(movements, func(i, j int) bool {
		di, dj := utils.Day(movements[i].Date), utils.Day(movements[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return movements[i].ID < movements[j].ID
	})
}

func (s *MemoryStore) MovementsByAccount(ctx context.Context, accountID int64) ([]models.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var movements []models.Movement
	for _, m := range s.movements {
		if m.AccountID == accountID {
			movements = append(movements, m)
		}
	}
	sortMovements(movements)
	return movements, nil
}

func (s *MemoryStore) MovementsInWindow(ctx context.Context, from, to time.Time) ([]models.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fromDay, toDay := utils.Day(from), utils.Day(to)
	var movements []models.Movement
	for _, m := range s.movements {
		d := utils.Day(m.Date)
		if d.Before(fromDay) || d.After(toDay) {
			continue
		}
		movements = append(movements, m)
	}
	sortMovements(movements)
	return movements, nil
}

func (s *MemoryStore) Movement(ctx context.Context, id int64) (*models.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movements[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) AddMovement(ctx context.Context, m models.Movement) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextMovementID
	s.nextMovementID++
	s.movements[m.ID] = m
	return m.ID, nil
}

func (s *MemoryStore) PutMovement(ctx context.Context, m models.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movements[m.ID]; !ok {
		return ErrNotFound
	}
	s.movements[m.ID] = m
	return nil
}

func (s *MemoryStore) InsertBatch(ctx context.Context, batch *models.ImportBatch, movements []models.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch.ID = s.nextBatchID
	s.nextBatchID++
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}

	for i := range movements {
		movements[i].ID = s.nextMovementID
		s.nextMovementID++
		movements[i].BatchID = batch.ID
		s.movements[movements[i].ID] = movements[i]
	}
	s.batches[batch.ID] = *batch
	return nil
}

func (s *MemoryStore) BatchesByAccount(ctx context.Context, accountID int64) ([]models.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var batches []models.ImportBatch
	for _, b := range s.batches {
		if b.AccountID == accountID {
			batches = append(batches, b)
		}
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches, nil
}

func (s *MemoryStore) AddTransfer(ctx context.Context, t models.Transfer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextTransferID
	s.nextTransferID++
	s.transfers[t.ID] = t
	return t.ID, nil
}

func (s *MemoryStore) Transfer(ctx context.Context, id int64) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) RemoveTransfer(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[id]; !ok {
		return ErrNotFound
	}
	delete(s.transfers, id)
	return nil
}
