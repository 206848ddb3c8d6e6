package pricing

import (
	"testing"

	"github.com/shopcore/cartservice/internal/domain/cart"
	"github.com/stretchr/testify/assert"
)

func lookup(prices map[int64]float64) PriceLookup {
	return func(productID int64) (float64, bool) {
		p, ok := prices[productID]
		return p, ok
	}
}

func TestCompute(t *testing.T) {
	prices := map[int64]float64{1: 10, 2: 5}
	lines := []cart.Line{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}

	s := Compute(lines, lookup(prices))

	assert.Equal(t, 25.0, s.Subtotal)
	assert.Equal(t, 2.5, s.Tax)
	assert.Equal(t, 5.0, s.Shipping)
	assert.Equal(t, 32.5, s.Total)
}

func TestComputeIsReferentiallyTransparent(t *testing.T) {
	prices := map[int64]float64{1: 10, 2: 5}
	lines := []cart.Line{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}

	first := Compute(lines, lookup(prices))
	second := Compute(lines, lookup(prices))

	assert.Equal(t, first, second)
}

func TestComputeMissingProductContributesZero(t *testing.T) {
	prices := map[int64]float64{1: 10}
	lines := []cart.Line{
		{ProductID: 1, Quantity: 1},
		{ProductID: 99, Quantity: 3},
	}

	s := Compute(lines, lookup(prices))

	assert.Equal(t, 10.0, s.Subtotal)
}

func TestComputeEmptyCartStillChargesShipping(t *testing.T) {
	s := Compute(nil, lookup(nil))

	assert.Equal(t, 0.0, s.Subtotal)
	assert.Equal(t, 0.0, s.Tax)
	assert.Equal(t, FlatShipping, s.Shipping)
	assert.Equal(t, FlatShipping, s.Total)
}
