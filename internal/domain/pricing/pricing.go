// Package pricing derives a cart summary from lines and catalog prices.
// Everything here is pure: same inputs, same outputs, no side effects.
package pricing

import "github.com/shopcore/cartservice/internal/domain/cart"

const (
	// TaxRate is a flat 10% applied to the subtotal.
	TaxRate = 0.10
	// FlatShipping is charged regardless of cart size, including empty carts.
	FlatShipping = 5.00
)

type Summary struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Total    float64
}

// PriceLookup resolves a product's unit price. ok=false means the product
// is missing from the catalog; the line then contributes zero to the
// subtotal rather than aborting the computation.
type PriceLookup func(productID int64) (price float64, ok bool)

func Compute(lines []cart.Line, price PriceLookup) Summary {
	var subtotal float64
	for _, l := range lines {
		unit, ok := price(l.ProductID)
		if !ok {
			continue
		}
		subtotal += unit * float64(l.Quantity)
	}

	tax := subtotal * TaxRate
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: FlatShipping,
		Total:    subtotal + tax + FlatShipping,
	}
}
