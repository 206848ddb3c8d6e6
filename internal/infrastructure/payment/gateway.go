package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopcore/cartservice/internal/domain/order"
)

// SimulatedGateway stands in for the external payment processor. An order
// with no lines is declined; otherwise the outcome follows the configured
// success rate.
type SimulatedGateway struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
}

func NewSimulatedGateway(successRate float64) *SimulatedGateway {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &SimulatedGateway{
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: successRate,
	}
}

func (g *SimulatedGateway) ProcessPayment(ctx context.Context, o *order.Order) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if o == nil || len(o.Lines) == 0 {
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// Float64 is in [0,1), so a rate of 0 never approves and 1 always does.
	return g.random.Float64() < g.successRate, nil
}
