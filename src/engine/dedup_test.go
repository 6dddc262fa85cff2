package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/username/tesoreria/backend/src/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFingerprintNormalization(t *testing.T) {
	a := Fingerprint(1, day(2025, 6, 1), decimal.RequireFromString("-33.50"), "Recibo LUZ  Iberdrola")
	b := Fingerprint(1, time.Date(2025, 6, 1, 17, 30, 0, 0, time.UTC), decimal.RequireFromString("-33.5"), "recibo luz iberdrola")
	assert.Equal(t, a, b, "time of day, trailing zeros and description case must not change the fingerprint")

	c := Fingerprint(2, day(2025, 6, 1), decimal.RequireFromString("-33.50"), "Recibo LUZ Iberdrola")
	assert.NotEqual(t, a, c, "different account, different fingerprint")
}

func TestPartitionDuplicates(t *testing.T) {
	existing := []models.Movement{
		{AccountID: 1, Date: day(2025, 6, 1), Amount: decimal.RequireFromString("-33.50"), Description: "Recibo luz"},
		{AccountID: 1, Date: day(2025, 6, 2), Amount: decimal.RequireFromString("1200.00"), Description: "Nomina"},
	}
	candidates := []models.ParsedMovement{
		{Date: day(2025, 6, 1), Amount: decimal.RequireFromString("-33.50"), Description: "recibo   luz"}, // dup
		{Date: day(2025, 6, 2), Amount: decimal.RequireFromString("1200.00"), Description: "Nomina"},      // dup
		{Date: day(2025, 6, 3), Amount: decimal.RequireFromString("-33.50"), Description: "Recibo luz"},   // new date
		{Date: day(2025, 6, 1), Amount: decimal.RequireFromString("-33.50"), Description: "Recibo agua"},  // near-dup, differing description
	}

	res := PartitionDuplicates(existing, 1, candidates)
	assert.Len(t, res.Duplicates, 2)
	assert.Len(t, res.ToImport, 2)
}

// Importing the same rows twice must classify every row as duplicate the
// second time around.
func TestPartitionDuplicatesIdempotent(t *testing.T) {
	candidates := []models.ParsedMovement{
		{Date: day(2025, 6, 1), Amount: decimal.RequireFromString("-10.00"), Description: "Cafe"},
		{Date: day(2025, 6, 2), Amount: decimal.RequireFromString("-20.00"), Description: "Super"},
	}

	first := PartitionDuplicates(nil, 1, candidates)
	assert.Len(t, first.ToImport, 2)

	stored := make([]models.Movement, 0, len(first.ToImport))
	for _, c := range first.ToImport {
		stored = append(stored, models.Movement{AccountID: 1, Date: c.Date, Amount: c.Amount, Description: c.Description})
	}

	second := PartitionDuplicates(stored, 1, candidates)
	assert.Empty(t, second.ToImport)
	assert.Len(t, second.Duplicates, 2)
}
