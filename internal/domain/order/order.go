package order

import "github.com/shopcore/cartservice/internal/domain/cart"

// Order is built transiently from a cart at checkout time and handed to the
// payment gateway. It is never persisted by this core.
type Order struct {
	UserID string
	Lines  []Line
}

type Line struct {
	ProductID int64
	Quantity  int
}

// BuildFromCart maps every cart line to an order line, preserving product
// id and quantity.
func BuildFromCart(userID string, lines []cart.Line) *Order {
	o := &Order{UserID: userID, Lines: make([]Line, 0, len(lines))}
	for _, l := range lines {
		o.Lines = append(o.Lines, Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return o
}
