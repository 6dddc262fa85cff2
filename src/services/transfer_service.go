package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/storage"
)

type transferServiceImpl struct {
	store       storage.Store
	projections ProjectionService
}

func NewTransferService(store storage.Store, projections ProjectionService) TransferService {
	return &transferServiceImpl{
		store:       store,
		projections: projections,
	}
}

// CreateTransfer links two movements the detector missed. The same rules the
// detector enforces apply, minus the date and amount tolerances: a human
// saying "these two are one transfer" overrides the heuristics, but the legs
// still have to be opposite-signed, on different accounts, and unlinked.
func (s *transferServiceImpl) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*models.Transfer, error) {
	out, err := s.loadMovement(ctx, req.OutMovementID)
	if err != nil {
		return nil, err
	}
	in, err := s.loadMovement(ctx, req.InMovementID)
	if err != nil {
		return nil, err
	}

	if !out.Amount.IsNegative() || in.Amount.IsNegative() || in.Amount.IsZero() {
		return nil, fmt.Errorf("%w: a transfer needs an outflow and an inflow, got %s and %s",
			ErrValidation, out.Amount, in.Amount)
	}
	if out.AccountID == in.AccountID {
		return nil, fmt.Errorf("%w: both movements belong to account %d", ErrValidation, out.AccountID)
	}
	if out.TransferID != 0 || in.TransferID != 0 {
		return nil, fmt.Errorf("%w: one of the movements is already part of a transfer", ErrValidation)
	}

	transfer := models.Transfer{
		FromAccountID: out.AccountID,
		ToAccountID:   in.AccountID,
		Amount:        out.Amount.Abs(),
		Date:          out.Date,
		Note:          req.Note,
		OutMovementID: out.ID,
		InMovementID:  in.ID,
	}
	transferID, err := s.store.AddTransfer(ctx, transfer)
	if err != nil {
		return nil, fmt.Errorf("persisting transfer: %w", err)
	}
	transfer.ID = transferID

	out.TransferID, out.PairedMovementID = transferID, in.ID
	in.TransferID, in.PairedMovementID = transferID, out.ID
	if err := s.store.PutMovement(ctx, *out); err != nil {
		return nil, fmt.Errorf("linking movement %d: %w", out.ID, err)
	}
	if err := s.store.PutMovement(ctx, *in); err != nil {
		return nil, fmt.Errorf("linking movement %d: %w", in.ID, err)
	}

	s.projections.InvalidateAccount(out.AccountID)
	s.projections.InvalidateAccount(in.AccountID)
	logger.L.Info("manual transfer created", "transferID", transferID,
		"outMovementID", out.ID, "inMovementID", in.ID)
	return &transfer, nil
}

// UnlinkTransfer undoes a detected or manual link. The movements themselves
// stay; only the pairing is removed.
func (s *transferServiceImpl) UnlinkTransfer(ctx context.Context, transferID int64) error {
	transfer, err := s.store.Transfer(ctx, transferID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: transfer %d does not exist", ErrValidation, transferID)
		}
		return fmt.Errorf("loading transfer %d: %w", transferID, err)
	}

	for _, movementID := range []int64{transfer.OutMovementID, transfer.InMovementID} {
		m, err := s.loadMovement(ctx, movementID)
		if err != nil {
			return err
		}
		m.TransferID, m.PairedMovementID = 0, 0
		if err := s.store.PutMovement(ctx, *m); err != nil {
			return fmt.Errorf("unlinking movement %d: %w", movementID, err)
		}
	}

	if err := s.store.RemoveTransfer(ctx, transferID); err != nil {
		return fmt.Errorf("removing transfer %d: %w", transferID, err)
	}

	s.projections.InvalidateAccount(transfer.FromAccountID)
	s.projections.InvalidateAccount(transfer.ToAccountID)
	logger.L.Info("transfer unlinked", "transferID", transferID)
	return nil
}

func (s *transferServiceImpl) loadMovement(ctx context.Context, id int64) (*models.Movement, error) {
	m, err := s.store.Movement(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: movement %d does not exist", ErrValidation, id)
		}
		return nil, fmt.Errorf("loading movement %d: %w", id, err)
	}
	return m, nil
}
