package domain

import "github.com/shopspring/decimal"

var (
	quarter = decimal.NewFromInt(4)

	// RecalcEpsilon absorbs rounding noise when comparing totals; it is
	// smaller than one cent.
	RecalcEpsilon = decimal.RequireFromString("0.005")
)

// Round2 rounds an amount half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Subtotal returns round2(quantity x unitPrice).
func Subtotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(quantity.Mul(unitPrice))
}

// NormalizeQuantity clamps q at zero and rounds it to the sellable
// granularity of the unit type: quarters for weight, whole units for count.
func NormalizeQuantity(unit UnitType, q decimal.Decimal) decimal.Decimal {
	if q.IsNegative() {
		return decimal.Zero
	}
	switch unit {
	case UnitCount:
		return q.Round(0)
	default:
		return q.Mul(quarter).Round(0).Div(quarter)
	}
}

// ClampSubtract returns max(0, available - delta).
func ClampSubtract(available, delta decimal.Decimal) (decimal.Decimal, bool) {
	next := available.Sub(delta)
	if next.IsNegative() {
		return decimal.Zero, true
	}
	return next, false
}

// DiffersBeyondEpsilon reports whether |a - b| > RecalcEpsilon.
func DiffersBeyondEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(RecalcEpsilon)
}
