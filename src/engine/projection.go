package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/utils"
)

// ProjectionInput is everything the projection pass needs: the account (for
// its stored balance) and its movements. The caller refreshes both between
// operations; the engine holds no state of its own.
type ProjectionInput struct {
	Account   models.Account
	Movements []models.Movement
	Start     time.Time
	End       time.Time
}

// Project computes the per-day running balance of an account over [Start, End].
//
// The running balance starts from the account's stored balance with every
// already-posted movement dated on or after Start backed out, so posted
// movements are not double-counted when the iteration re-applies them.
// Forecast-stage movements (previsto, vencido) and unplanned imports are all
// applied day by day; each emitted movement carries its status so the UI can
// distinguish projected from confirmed cash.
//
// Summation is decimal and ordered by date then insertion order, so repeated
// runs over the same input yield identical totals.
func Project(in ProjectionInput) (*models.ProjectionResult, error) {
	start, end := utils.Day(in.Start), utils.Day(in.End)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid period: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	movements := make([]models.Movement, 0, len(in.Movements))
	for _, m := range in.Movements {
		if m.Ignored {
			continue
		}
		movements = append(movements, m)
	}
	sort.SliceStable(movements, func(i, j int) bool {
		di, dj := utils.Day(movements[i].Date), utils.Day(movements[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return movements[i].ID < movements[j].ID
	})

	// Back out posted movements from Start forward: they are already inside
	// the stored balance and will be re-applied by the day iteration.
	running := in.Account.Balance
	for _, m := range movements {
		if m.IsPosted() && !utils.Day(m.Date).Before(start) {
			running = running.Sub(m.Amount)
		}
	}

	byDay := make(map[time.Time][]models.Movement)
	for _, m := range movements {
		d := utils.Day(m.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		byDay[d] = append(byDay[d], m)
	}

	result := &models.ProjectionResult{
		AccountID:    in.Account.ID,
		Start:        start,
		End:          end,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}

	minBalance := decimal.Decimal{}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dp := models.DayProjection{
			Date:          day,
			Movements:     byDay[day],
			IncomeAmount:  decimal.Zero,
			ExpenseAmount: decimal.Zero,
		}
		for _, m := range dp.Movements {
			running = running.Add(m.Amount)
			if m.IsExpense() {
				dp.ExpenseCount++
				dp.ExpenseAmount = dp.ExpenseAmount.Add(m.Amount.Abs())
			} else {
				dp.IncomeCount++
				dp.IncomeAmount = dp.IncomeAmount.Add(m.Amount)
			}
		}
		dp.EndOfDayBalance = running

		if len(result.Days) == 0 || running.LessThan(minBalance) {
			minBalance = running
		}
		result.TotalIncome = result.TotalIncome.Add(dp.IncomeAmount)
		result.TotalExpense = result.TotalExpense.Add(dp.ExpenseAmount)
		result.Days = append(result.Days, dp)
	}

	result.Net = result.TotalIncome.Sub(result.TotalExpense)
	result.ProjectedBalance = running
	result.MinimumBalance = minBalance
	return result, nil
}
