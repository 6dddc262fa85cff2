package engine

import "github.com/shopspring/decimal"

// Config carries the matching tolerances used by transfer detection and
// forecast matching. The defaults are deliberately not load-bearing; every
// value can be overridden from the environment.
type Config struct {
	// TransferDateWindowDays is the maximum calendar-day gap between the two
	// legs of an internal transfer.
	TransferDateWindowDays int
	// TransferTolerancePct and TransferToleranceAbs bound the allowed amount
	// deviation between the two legs; the effective tolerance is the smaller
	// of the fixed amount and the percentage of the larger leg.
	TransferTolerancePct decimal.Decimal
	TransferToleranceAbs decimal.Decimal
	// ForecastMatchWindowDays is the day window for matching an imported
	// movement to a forecast entry on the same account.
	ForecastMatchWindowDays int
}

// DefaultConfig returns the stock tolerances: 3-day windows, 1% or 5.00
// absolute, whichever is smaller.
func DefaultConfig() Config {
	return Config{
		TransferDateWindowDays:  3,
		TransferTolerancePct:    decimal.NewFromFloat(0.01),
		TransferToleranceAbs:    decimal.RequireFromString("5.00"),
		ForecastMatchWindowDays: 3,
	}
}

// AmountTolerance returns the allowed absolute amount deviation for a given
// reference amount.
func (c Config) AmountTolerance(ref decimal.Decimal) decimal.Decimal {
	pctTol := ref.Abs().Mul(c.TransferTolerancePct)
	if c.TransferToleranceAbs.LessThan(pctTol) {
		return c.TransferToleranceAbs
	}
	return pctTol
}

// WithinAmountTolerance reports whether two absolute amounts are close enough
// to belong to the same transfer or forecast match.
func (c Config) WithinAmountTolerance(a, b decimal.Decimal) bool {
	ref := a.Abs()
	if b.Abs().GreaterThan(ref) {
		ref = b.Abs()
	}
	diff := a.Abs().Sub(b.Abs()).Abs()
	return diff.LessThanOrEqual(c.AmountTolerance(ref))
}
