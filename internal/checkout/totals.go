package checkout

import "math"

// TaxRate applies to merchandise plus shipping.
const TaxRate = 0.08

// Totals carries exact (unrounded) amounts. Rounding happens only when a
// value leaves the system: Display for presentation, MinorUnits for the
// charge amount. Keeping intermediates exact means repeated recomputation
// can never drift.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	ShippingCost float64 `json:"shipping_cost"`
	Tax          float64 `json:"tax"`
	Total        float64 `json:"total"`
}

func Compute(subtotal, shippingCost float64) Totals {
	tax := (subtotal + shippingCost) * TaxRate
	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		Tax:          tax,
		Total:        subtotal + shippingCost + tax,
	}
}

// Display returns a copy with every amount rounded to cents.
func (t Totals) Display() Totals {
	return Totals{
		Subtotal:     Round2(t.Subtotal),
		ShippingCost: Round2(t.ShippingCost),
		Tax:          Round2(t.Tax),
		Total:        Round2(t.Total),
	}
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MinorUnits converts a dollar amount to cents for the payment provider.
func MinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}
