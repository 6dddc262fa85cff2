package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/username/tesoreria/backend/src/models"
)

func daysWithBalances(balances ...string) []models.DayProjection {
	days := make([]models.DayProjection, 0, len(balances))
	for _, b := range balances {
		days = append(days, models.DayProjection{EndOfDayBalance: decimal.RequireFromString(b)})
	}
	return days
}

func TestEvaluateRisk(t *testing.T) {
	floor := decimal.RequireFromString("200.00")

	tests := []struct {
		name     string
		balances []string
		want     models.RiskLevel
	}{
		{"comfortably above floor", []string{"500", "400", "300"}, models.RiskVerde},
		{"exactly at floor", []string{"500", "200", "300"}, models.RiskVerde},
		{"dips below floor", []string{"500", "150", "300"}, models.RiskAmbar},
		{"zero balance is below floor but not negative", []string{"500", "0"}, models.RiskAmbar},
		// A negative day dominates even when other days only warrant ambar.
		{"negative day wins", []string{"500", "150", "-20"}, models.RiskRojo},
		{"empty series", nil, models.RiskVerde},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateRisk(daysWithBalances(tt.balances...), floor))
		})
	}
}
