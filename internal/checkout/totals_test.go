package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_HeadphonesScenario(t *testing.T) {
	// Two units at 19.99 with free standard shipping.
	totals := Compute(39.98, 0)

	display := totals.Display()
	assert.Equal(t, 39.98, display.Subtotal)
	assert.Equal(t, 0.0, display.ShippingCost)
	assert.Equal(t, 3.20, display.Tax)
	assert.Equal(t, 43.18, display.Total)

	assert.Equal(t, int64(4318), MinorUnits(totals.Total))
}

func TestCompute_TaxCoversShipping(t *testing.T) {
	totals := Compute(100, 9.99)

	assert.InDelta(t, 8.7992, totals.Tax, 1e-9)
	assert.InDelta(t, 118.7892, totals.Total, 1e-9)
	assert.Equal(t, 8.80, totals.Display().Tax)
	assert.Equal(t, 118.79, totals.Display().Total)
}

func TestCompute_RecomputationIsStable(t *testing.T) {
	first := Compute(39.98, 24.99)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Compute(39.98, 24.99))
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.20, Round2(3.1984))
	assert.Equal(t, 3.19, Round2(3.194))
	assert.Equal(t, 0.0, Round2(0))
}
