package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tesoreria/backend/src/models"
)

func TestMemoryStoreMovementOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	accountID, err := s.AddAccount(ctx, models.Account{Alias: "Corriente", IBAN: "ES01", Active: true})
	require.NoError(t, err)

	d1 := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.AddMovement(ctx, models.Movement{AccountID: accountID, Date: d1, Amount: decimal.NewFromInt(1), Origin: models.OriginManual, Status: models.StatusConfirmado})
	require.NoError(t, err)
	_, err = s.AddMovement(ctx, models.Movement{AccountID: accountID, Date: d2, Amount: decimal.NewFromInt(2), Origin: models.OriginManual, Status: models.StatusConfirmado})
	require.NoError(t, err)
	_, err = s.AddMovement(ctx, models.Movement{AccountID: accountID, Date: d2, Amount: decimal.NewFromInt(3), Origin: models.OriginManual, Status: models.StatusConfirmado})
	require.NoError(t, err)

	movements, err := s.MovementsByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, movements, 3)

	// Date ascending, insertion order within a day.
	assert.Equal(t, int64(2), movements[0].ID)
	assert.Equal(t, int64(3), movements[1].ID)
	assert.Equal(t, int64(1), movements[2].ID)
}

func TestMemoryStoreInsertBatchAssignsIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	accountID, err := s.AddAccount(ctx, models.Account{Alias: "Corriente", IBAN: "ES01", Active: true})
	require.NoError(t, err)

	batch := &models.ImportBatch{UUID: "b-1", AccountID: accountID, Filename: "extracto.csv", TotalRows: 2, ImportedRows: 2}
	movements := []models.Movement{
		{AccountID: accountID, Date: time.Now(), Amount: decimal.NewFromInt(10), Origin: models.OriginImport, Status: models.StatusNoPlanificado},
		{AccountID: accountID, Date: time.Now(), Amount: decimal.NewFromInt(-5), Origin: models.OriginImport, Status: models.StatusNoPlanificado},
	}
	require.NoError(t, s.InsertBatch(ctx, batch, movements))

	assert.NotZero(t, batch.ID)
	for _, m := range movements {
		assert.NotZero(t, m.ID)
		assert.Equal(t, batch.ID, m.BatchID)
	}

	batches, err := s.BatchesByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "extracto.csv", batches[0].Filename)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Account(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Movement(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	err = s.UpdateAccountBalance(ctx, 99, decimal.Zero)
	assert.ErrorIs(t, err, ErrNotFound)
	err = s.RemoveTransfer(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
