package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/utils"
)

// ClassifyInput is the per-account view the status classifier runs over.
// Movements must all belong to the same account; Now anchors overdue checks.
type ClassifyInput struct {
	Movements []models.Movement
	Now       time.Time
}

// ClassifyResult lists the movements whose status or links changed, plus the
// import movements left unresolved because several forecast entries matched
// equally well.
type ClassifyResult struct {
	Updated              []models.Movement
	AmbiguousMovementIDs []int64
}

// Classify runs one reconciliation pass over a single account: imported
// movements are matched to open forecast entries within the tolerance window,
// and unmatched forecasts whose date has elapsed become overdue. The pass is
// pure; callers persist the returned updates.
//
// When an import movement confirms a forecast entry, both become confirmado
// and the forecast entry is flagged ignored so projections count the cash
// flow once. The entry stays stored for audit.
func Classify(in ClassifyInput, cfg Config) ClassifyResult {
	var result ClassifyResult

	var forecasts []*forecastSlot
	for _, m := range in.Movements {
		if m.Origin == models.OriginForecast && !m.Ignored && m.MatchedMovementID == 0 &&
			(m.Status == models.StatusPrevisto || m.Status == models.StatusVencido) {
			forecasts = append(forecasts, &forecastSlot{m: m})
		}
	}

	for _, m := range in.Movements {
		if m.Origin != models.OriginImport || m.Status != models.StatusNoPlanificado || m.MatchedMovementID != 0 {
			continue
		}

		best, tied := bestForecastCandidate(m, forecasts, cfg)
		if tied {
			result.AmbiguousMovementIDs = append(result.AmbiguousMovementIDs, m.ID)
			continue
		}
		if best == nil {
			continue
		}

		best.taken = true
		forecast := best.m
		forecast.Status = models.StatusConfirmado
		forecast.MatchedMovementID = m.ID
		forecast.Ignored = true
		best.m = forecast

		m.Status = models.StatusConfirmado
		m.MatchedMovementID = forecast.ID

		result.Updated = append(result.Updated, m, forecast)
	}

	// Overdue pass: anything still expected whose date has passed.
	today := utils.Day(in.Now)
	for _, s := range forecasts {
		if s.taken {
			continue
		}
		if s.m.Status == models.StatusPrevisto && utils.Day(s.m.Date).Before(today) {
			s.m.Status = models.StatusVencido
			result.Updated = append(result.Updated, s.m)
		}
	}

	sort.Slice(result.AmbiguousMovementIDs, func(a, b int) bool {
		return result.AmbiguousMovementIDs[a] < result.AmbiguousMovementIDs[b]
	})
	return result
}

// forecastSlot tracks an open forecast entry during a classification pass.
type forecastSlot struct {
	m     models.Movement
	taken bool
}

// bestForecastCandidate returns the strictly best open forecast slot for an
// import movement, or tied=true when two or more candidates score equally.
func bestForecastCandidate(m models.Movement, forecasts []*forecastSlot, cfg Config) (best *forecastSlot, tied bool) {
	bestScore := 0.0
	for _, s := range forecasts {
		if s.taken {
			continue
		}
		if s.m.Amount.IsNegative() != m.Amount.IsNegative() {
			continue
		}
		days := utils.DaysBetween(s.m.Date, m.Date)
		if days > cfg.ForecastMatchWindowDays {
			continue
		}
		if !cfg.WithinAmountTolerance(s.m.Amount, m.Amount) {
			continue
		}
		score := matchScore(s.m, m, days, cfg)
		switch {
		case best == nil || score < bestScore:
			best, bestScore, tied = s, score, false
		case score == bestScore:
			tied = true
		}
	}
	if tied {
		return nil, true
	}
	return best, false
}

// matchScore mirrors pairScore for single-account forecast matching.
func matchScore(forecast, imported models.Movement, days int, cfg Config) float64 {
	score := 0.0
	if cfg.ForecastMatchWindowDays > 0 {
		score += float64(days) / float64(cfg.ForecastMatchWindowDays)
	}
	ref := forecast.Amount.Abs()
	if imported.Amount.Abs().GreaterThan(ref) {
		ref = imported.Amount.Abs()
	}
	tol := cfg.AmountTolerance(ref)
	if tol.IsPositive() {
		diff := forecast.Amount.Abs().Sub(imported.Amount.Abs()).Abs()
		f, _ := diff.Div(tol).Float64()
		score += f
	}
	return score
}

// ConfirmMovement applies the manual "mark paid/collected" action.
func ConfirmMovement(m models.Movement) (models.Movement, error) {
	if !models.CanTransition(m.Status, models.StatusConfirmado) {
		return m, fmt.Errorf("movement %d: cannot confirm from status %s", m.ID, m.Status)
	}
	m.Status = models.StatusConfirmado
	return m, nil
}

// ReconcileMovement applies the manual close action. Only confirmed movements
// can be reconciled, and reconciled is terminal.
func ReconcileMovement(m models.Movement) (models.Movement, error) {
	if !models.CanTransition(m.Status, models.StatusConciliado) {
		return m, fmt.Errorf("movement %d: cannot reconcile from status %s", m.ID, m.Status)
	}
	m.Status = models.StatusConciliado
	return m, nil
}
