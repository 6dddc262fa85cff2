package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/storage"
)

// recomputeAccountBalance rebuilds an account's stored balance from its
// opening balance plus every posted, non-ignored movement, and persists it.
// Forecast-stage movements never touch the stored balance.
func recomputeAccountBalance(ctx context.Context, st storage.Store, accountID int64) error {
	account, err := st.Account(ctx, accountID)
	if err != nil {
		return fmt.Errorf("loading account %d: %w", accountID, err)
	}

	movements, err := st.MovementsByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("loading movements for account %d: %w", accountID, err)
	}

	balance := account.OpeningBalance
	for i := range movements {
		m := &movements[i]
		if m.Ignored || !m.IsPosted() {
			continue
		}
		balance = balance.Add(m.Amount)
	}

	if err := st.UpdateAccountBalance(ctx, accountID, balance); err != nil {
		return fmt.Errorf("updating balance for account %d: %w", accountID, err)
	}
	return nil
}

// loadActiveAccount fetches an account and rejects unknown or deactivated ones.
func loadActiveAccount(ctx context.Context, st storage.Store, accountID int64) (*models.Account, error) {
	account, err := st.Account(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d does not exist", ErrValidation, accountID)
		}
		return nil, fmt.Errorf("loading account %d: %w", accountID, err)
	}
	if !account.Active {
		return nil, fmt.Errorf("%w: account %d is deactivated", ErrValidation, accountID)
	}
	return account, nil
}
