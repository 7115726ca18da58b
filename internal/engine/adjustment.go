package engine

import (
	"github.com/shopspring/decimal"

	"hotel_rates/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ApplyAdjustment turns one adjustment spec plus the running price into the
// next price. Pure; unknown adjustment types are the compositor's concern
// and never reach here. The result never drops below zero.
func ApplyAdjustment(adj domain.Adjustment, current decimal.Decimal) decimal.Decimal {
	var next decimal.Decimal
	switch adj.Type {
	case domain.AdjustPercentage:
		next = current.Mul(decimal.NewFromInt(1).Add(signedValue(adj).Div(hundred)))
	case domain.AdjustFixed:
		next = current.Add(signedValue(adj))
	case domain.AdjustMultiply:
		// Direction is ignored: a factor below 1 already decreases.
		next = current.Mul(adj.Value)
	default:
		next = current
	}
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}

// signedValue normalizes the adjustment value's sign from Direction:
// decrease forces negative, increase forces positive.
func signedValue(adj domain.Adjustment) decimal.Decimal {
	v := adj.Value.Abs()
	if adj.Direction == domain.Decrease {
		return v.Neg()
	}
	return v
}
