package payment

import (
	"context"

	"github.com/shopcore/cartservice/internal/domain/order"
)

// Gateway is the external payment processor. The call is synchronous; a
// transport error is treated the same as a declined payment for
// cart-preservation purposes.
type Gateway interface {
	ProcessPayment(ctx context.Context, o *order.Order) (bool, error)
}
