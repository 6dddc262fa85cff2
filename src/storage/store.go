package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Store is the persistence capability the reconciliation engine runs against.
// The engine treats it as an abstract record store; callers pick the backing
// implementation (sqlite in production, memory in tests).
type Store interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	Account(ctx context.Context, id int64) (*models.Account, error)
	AddAccount(ctx context.Context, a models.Account) (int64, error)
	UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error

	// MovementsByAccount returns an account's movements ordered by date, then
	// by insertion order, so downstream passes are deterministic.
	MovementsByAccount(ctx context.Context, accountID int64) ([]models.Movement, error)
	// MovementsInWindow returns movements across all accounts with a date in
	// [from, to], same ordering. Used by the cross-account transfer pass.
	MovementsInWindow(ctx context.Context, from, to time.Time) ([]models.Movement, error)
	Movement(ctx context.Context, id int64) (*models.Movement, error)
	AddMovement(ctx context.Context, m models.Movement) (int64, error)
	PutMovement(ctx context.Context, m models.Movement) error

	// InsertBatch durably stores the movements and the batch record in one
	// transaction, batch record last. If the batch record is absent the
	// import never happened, which is what makes retries idempotent.
	InsertBatch(ctx context.Context, batch *models.ImportBatch, movements []models.Movement) error
	BatchesByAccount(ctx context.Context, accountID int64) ([]models.ImportBatch, error)

	AddTransfer(ctx context.Context, t models.Transfer) (int64, error)
	Transfer(ctx context.Context, id int64) (*models.Transfer, error)
	RemoveTransfer(ctx context.Context, id int64) error
}
