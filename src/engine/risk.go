package engine

import (
	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/models"
)

// EvaluateRisk reduces a projection series against the account's configured
// minimum-balance floor:
//
//	rojo  — the projected balance goes negative on any day
//	ambar — it stays non-negative but dips below the floor
//	verde — otherwise
func EvaluateRisk(days []models.DayProjection, floor decimal.Decimal) models.RiskLevel {
	level := models.RiskVerde
	for _, d := range days {
		if d.EndOfDayBalance.IsNegative() {
			return models.RiskRojo
		}
		if d.EndOfDayBalance.LessThan(floor) {
			level = models.RiskAmbar
		}
	}
	return level
}
