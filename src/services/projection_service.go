package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tesoreria/backend/src/engine"
	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/storage"
)

// Cache keys for computed projections. Keyed per account so one account's
// import does not evict another's projections.
const ckProjection = "proj_acct_%d_%s_%s"

type projectionServiceImpl struct {
	store storage.Store
	cache *cache.Cache
}

func NewProjectionService(store storage.Store, projectionCache *cache.Cache) ProjectionService {
	return &projectionServiceImpl{
		store: store,
		cache: projectionCache,
	}
}

// Projection returns the day-by-day balance projection for one account over
// [start, end], with the traffic-light risk level already evaluated against
// the account's minimum balance threshold. Results are cached until the
// account's data changes or the TTL expires.
func (s *projectionServiceImpl) Projection(ctx context.Context, accountID int64, start, end time.Time) (*models.ProjectionResult, error) {
	key := fmt.Sprintf(ckProjection, accountID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if cached, found := s.cache.Get(key); found {
		if result, ok := cached.(*models.ProjectionResult); ok {
			return result, nil
		}
	}

	account, err := loadActiveAccount(ctx, s.store, accountID)
	if err != nil {
		return nil, err
	}
	movements, err := s.store.MovementsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading movements for account %d: %w", accountID, err)
	}

	result, err := engine.Project(engine.ProjectionInput{
		Account:   *account,
		Movements: movements,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	result.Risk = engine.EvaluateRisk(result.Days, account.MinimumBalance)

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// InvalidateAccount drops every cached projection for the account, whatever
// period it was computed for.
func (s *projectionServiceImpl) InvalidateAccount(accountID int64) {
	prefix := fmt.Sprintf("proj_acct_%d_", accountID)
	dropped := 0
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
			dropped++
		}
	}
	if dropped > 0 {
		logger.L.Debug("projection cache invalidated", "accountID", accountID, "entries", dropped)
	}
}
