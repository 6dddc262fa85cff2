package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/username/tesoreria/backend/src/engine"
	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/storage"
)

type movementServiceImpl struct {
	store       storage.Store
	projections ProjectionService
}

func NewMovementService(store storage.Store, projections ProjectionService) MovementService {
	return &movementServiceImpl{
		store:       store,
		projections: projections,
	}
}

// Create adds a hand-entered movement. Forecast entries start as previsto and
// only affect projections; manual entries record already-executed cash and
// post straight into the balance as confirmado.
func (s *movementServiceImpl) Create(ctx context.Context, req CreateMovementRequest) (*models.Movement, error) {
	if _, err := loadActiveAccount(ctx, s.store, req.AccountID); err != nil {
		return nil, err
	}
	if req.Amount.IsZero() {
		return nil, fmt.Errorf("%w: amount must be non-zero", ErrValidation)
	}
	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}

	m := models.Movement{
		AccountID:   req.AccountID,
		Date:        req.Date,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Origin:      models.OriginManual,
		Status:      models.StatusConfirmado,
	}
	if req.Forecast {
		m.Origin = models.OriginForecast
		m.Status = models.StatusPrevisto
	}

	id, err := s.store.AddMovement(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("persisting movement: %w", err)
	}
	m.ID = id

	if m.IsPosted() {
		if err := recomputeAccountBalance(ctx, s.store, m.AccountID); err != nil {
			return nil, err
		}
	}
	s.projections.InvalidateAccount(m.AccountID)

	logger.L.Info("movement created", "movementID", id, "accountID", m.AccountID,
		"origin", m.Origin, "status", m.Status)
	return &m, nil
}

// Confirm marks a forecast or unplanned movement as confirmed. Confirming a
// forecast-stage movement moves it into the stored balance, so the account
// balance is recomputed.
func (s *movementServiceImpl) Confirm(ctx context.Context, movementID int64) (*models.Movement, error) {
	return s.transition(ctx, movementID, engine.ConfirmMovement, "confirmed")
}

// Reconcile closes a confirmed movement after checking it against the bank
// statement. Terminal; a reconciled movement never changes status again.
func (s *movementServiceImpl) Reconcile(ctx context.Context, movementID int64) (*models.Movement, error) {
	return s.transition(ctx, movementID, engine.ReconcileMovement, "reconciled")
}

func (s *movementServiceImpl) transition(ctx context.Context, movementID int64,
	apply func(models.Movement) (models.Movement, error), action string) (*models.Movement, error) {

	m, err := s.store.Movement(ctx, movementID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: movement %d does not exist", ErrValidation, movementID)
		}
		return nil, fmt.Errorf("loading movement %d: %w", movementID, err)
	}

	updated, err := apply(*m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.PutMovement(ctx, updated); err != nil {
		return nil, fmt.Errorf("persisting movement %d: %w", movementID, err)
	}

	if err := recomputeAccountBalance(ctx, s.store, updated.AccountID); err != nil {
		return nil, err
	}
	s.projections.InvalidateAccount(updated.AccountID)

	logger.L.Info("movement "+action, "movementID", movementID, "accountID", updated.AccountID)
	return &updated, nil
}
