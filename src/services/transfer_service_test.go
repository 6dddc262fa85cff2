package services

import (
	"context"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/storage"
)

func seedPostedMovement(t *testing.T, store *storage.MemoryStore, accountID int64, amount string) int64 {
	t.Helper()
	id, err := store.AddMovement(context.Background(), models.Movement{
		AccountID:   accountID,
		Date:        time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Description: "movimiento",
		Origin:      models.OriginImport,
		Status:      models.StatusNoPlanificado,
	})
	require.NoError(t, err)
	return id
}

func TestCreateAndUnlinkTransfer(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	projections := NewProjectionService(store, cache.New(time.Minute, time.Minute))
	svc := NewTransferService(store, projections)

	checking := seedAccount(t, store, "Corriente", 1000)
	savings := seedAccount(t, store, "Ahorro", 0)
	outID := seedPostedMovement(t, store, checking, "-250.00")
	inID := seedPostedMovement(t, store, savings, "250.00")

	transfer, err := svc.CreateTransfer(ctx, CreateTransferRequest{
		OutMovementID: outID,
		InMovementID:  inID,
		Note:          "aportacion mensual",
	})
	require.NoError(t, err)
	assert.Equal(t, checking, transfer.FromAccountID)
	assert.Equal(t, savings, transfer.ToAccountID)
	assert.Equal(t, "250", transfer.Amount.String())

	out, err := store.Movement(ctx, outID)
	require.NoError(t, err)
	assert.Equal(t, transfer.ID, out.TransferID)
	assert.Equal(t, inID, out.PairedMovementID)

	// Already linked movements cannot be claimed again.
	_, err = svc.CreateTransfer(ctx, CreateTransferRequest{OutMovementID: outID, InMovementID: inID})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.UnlinkTransfer(ctx, transfer.ID))

	out, err = store.Movement(ctx, outID)
	require.NoError(t, err)
	assert.Zero(t, out.TransferID)
	assert.Zero(t, out.PairedMovementID)

	_, err = store.Transfer(ctx, transfer.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateTransferValidation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	projections := NewProjectionService(store, cache.New(time.Minute, time.Minute))
	svc := NewTransferService(store, projections)

	checking := seedAccount(t, store, "Corriente", 0)
	savings := seedAccount(t, store, "Ahorro", 0)

	out := seedPostedMovement(t, store, checking, "-250.00")
	sameAccountIn := seedPostedMovement(t, store, checking, "250.00")
	otherOut := seedPostedMovement(t, store, savings, "-250.00")

	// Both legs on the same account.
	_, err := svc.CreateTransfer(ctx, CreateTransferRequest{OutMovementID: out, InMovementID: sameAccountIn})
	assert.ErrorIs(t, err, ErrValidation)

	// Two outflows.
	_, err = svc.CreateTransfer(ctx, CreateTransferRequest{OutMovementID: out, InMovementID: otherOut})
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown movement.
	_, err = svc.CreateTransfer(ctx, CreateTransferRequest{OutMovementID: out, InMovementID: 999})
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown transfer.
	err = svc.UnlinkTransfer(ctx, 999)
	assert.ErrorIs(t, err, ErrValidation)
}
