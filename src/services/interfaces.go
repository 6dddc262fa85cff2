package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/config"
	"github.com/username/tesoreria/backend/src/engine"
	"github.com/username/tesoreria/backend/src/models"
)

var (
	// ErrValidation marks caller mistakes: unknown account, inactive account,
	// movements that cannot be linked. Handlers map it to 400/404.
	ErrValidation = errors.New("validation failed")
	// ErrParsingFailed marks files no parser could make sense of.
	ErrParsingFailed = errors.New("statement parsing failed")
)

// ImportRequest carries one uploaded statement file into the import pipeline.
type ImportRequest struct {
	AccountID int64
	Filename  string
	File      io.Reader
	// Now anchors overdue and batch timestamps; zero means time.Now().
	Now time.Time
}

// ImportService runs the statement import pipeline: parse, dedupe, persist,
// detect transfers, reconcile against forecasts, refresh the account balance.
type ImportService interface {
	ProcessImport(ctx context.Context, req ImportRequest) (*models.ImportResult, error)
}

// ProjectionService computes (and caches) day-by-day balance projections.
type ProjectionService interface {
	Projection(ctx context.Context, accountID int64, start, end time.Time) (*models.ProjectionResult, error)
	// InvalidateAccount drops every cached projection for an account. Called
	// by anything that changes the account's movements or balance.
	InvalidateAccount(accountID int64)
}

// CreateTransferRequest links two existing movements as one internal transfer.
type CreateTransferRequest struct {
	OutMovementID int64
	InMovementID  int64
	Note          string
}

// TransferService manages manual corrections to automatic transfer detection.
type TransferService interface {
	CreateTransfer(ctx context.Context, req CreateTransferRequest) (*models.Transfer, error)
	UnlinkTransfer(ctx context.Context, transferID int64) error
}

// CreateMovementRequest adds a movement by hand: either a forecast entry
// (previsto) or an already-executed manual one (confirmado).
type CreateMovementRequest struct {
	AccountID   int64
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Category    string
	Forecast    bool
}

// MovementService exposes the manual actions on movements.
type MovementService interface {
	Create(ctx context.Context, req CreateMovementRequest) (*models.Movement, error)
	Confirm(ctx context.Context, movementID int64) (*models.Movement, error)
	Reconcile(ctx context.Context, movementID int64) (*models.Movement, error)
}

// engineConfig translates the environment-driven app config into the matching
// tolerances the reconciliation engine runs with.
func engineConfig(cfg *config.AppConfig) engine.Config {
	ec := engine.DefaultConfig()
	if cfg == nil {
		return ec
	}
	if cfg.TransferDateWindowDays > 0 {
		ec.TransferDateWindowDays = cfg.TransferDateWindowDays
	}
	if cfg.TransferTolerancePct > 0 {
		ec.TransferTolerancePct = decimal.NewFromFloat(cfg.TransferTolerancePct)
	}
	if abs, err := decimal.NewFromString(cfg.TransferToleranceAbs); err == nil && !abs.IsNegative() {
		ec.TransferToleranceAbs = abs
	}
	if cfg.ForecastMatchWindowDays > 0 {
		ec.ForecastMatchWindowDays = cfg.ForecastMatchWindowDays
	}
	return ec
}
