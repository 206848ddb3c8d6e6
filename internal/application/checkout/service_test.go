package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopcore/cartservice/internal/domain/cart"
	"github.com/shopcore/cartservice/internal/domain/order"
	"github.com/shopcore/cartservice/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type stubGateway struct {
	mu      sync.Mutex
	calls   int32
	approve bool
	err     error
}

func (g *stubGateway) ProcessPayment(ctx context.Context, o *order.Order) (bool, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.approve, g.err
}

func (g *stubGateway) callCount() int {
	return int(atomic.LoadInt32(&g.calls))
}

type seqIDs struct {
	n int32
}

func (s *seqIDs) NewID() string {
	return fmt.Sprintf("attempt-%d", atomic.AddInt32(&s.n, 1))
}

func newTestService(gateway *stubGateway) (*Service, cart.Repository) {
	repo := memory.NewCartRepository()
	svc := NewService(repo, gateway, &seqIDs{}, nil, nil, time.Minute)
	return svc, repo
}

func TestCheckoutEmptyCartSkipsGateway(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{approve: true}
	svc, _ := newTestService(gateway)

	result, err := svc.Checkout(ctx, "u1", "")
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Equal(t, OutcomeEmptyCart, result.Outcome)
	assert.Zero(t, gateway.callCount())
}

func TestCheckoutSuccessClearsCart(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{approve: true}
	svc, repo := newTestService(gateway)

	require.NoError(t, repo.Upsert(ctx, "u1", 1, 2))
	require.NoError(t, repo.Upsert(ctx, "u1", 2, 1))

	result, err := svc.Checkout(ctx, "u1", "")
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.NotEmpty(t, result.AttemptID)

	lines, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCheckoutDeclineKeepsCart(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{approve: false}
	svc, repo := newTestService(gateway)

	require.NoError(t, repo.Upsert(ctx, "u1", 1, 2))

	result, err := svc.Checkout(ctx, "u1", "")
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Equal(t, OutcomeDeclined, result.Outcome)

	lines, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCheckoutGatewayErrorKeepsCart(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{err: errors.New("gateway timeout")}
	svc, repo := newTestService(gateway)

	require.NoError(t, repo.Upsert(ctx, "u1", 1, 2))

	result, err := svc.Checkout(ctx, "u1", "")
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Equal(t, OutcomeDeclined, result.Outcome)

	lines, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

// mutatingGateway writes to the cart while the payment is in flight,
// standing in for a request that races the checkout.
type mutatingGateway struct {
	repo cart.Repository
}

func (g *mutatingGateway) ProcessPayment(ctx context.Context, o *order.Order) (bool, error) {
	if err := g.repo.Upsert(ctx, o.UserID, 99, 1); err != nil {
		return false, err
	}
	if err := g.repo.Upsert(ctx, o.UserID, 1, 4); err != nil {
		return false, err
	}
	return true, nil
}

func TestCheckoutKeepsLinesAddedDuringPayment(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCartRepository()
	svc := NewService(repo, &mutatingGateway{repo: repo}, &seqIDs{}, nil, nil, time.Minute)

	require.NoError(t, repo.Upsert(ctx, "u1", 1, 2))

	result, err := svc.Checkout(ctx, "u1", "")
	require.NoError(t, err)
	require.True(t, result.Completed)

	// Only the billed quantities settle: the line added mid-payment and
	// the top-up beyond the billed amount both stay in the cart.
	lines, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	byProduct := map[int64]int{}
	for _, l := range lines {
		byProduct[l.ProductID] = l.Quantity
	}
	assert.Equal(t, 4, byProduct[1])
	assert.Equal(t, 1, byProduct[99])
}

func TestCheckoutRequiresUserID(t *testing.T) {
	gateway := &stubGateway{approve: true}
	svc, _ := newTestService(gateway)

	_, err := svc.Checkout(context.Background(), "", "")
	assert.ErrorIs(t, err, cart.ErrUserRequired)
	assert.Zero(t, gateway.callCount())
}

func TestCheckoutIdempotencyKeyReplaysWithoutCharging(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{approve: true}
	svc, repo := newTestService(gateway)

	require.NoError(t, repo.Upsert(ctx, "u1", 1, 2))

	first, err := svc.Checkout(ctx, "u1", "key-1")
	require.NoError(t, err)
	require.True(t, first.Completed)
	require.Equal(t, 1, gateway.callCount())

	// The cart is empty now; a naive retry would see empty_cart. The
	// replayed key must return the original outcome instead.
	second, err := svc.Checkout(ctx, "u1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gateway.callCount())
}

func TestCheckoutIdempotencyKeyIsScopedPerUser(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{approve: true}
	svc, repo := newTestService(gateway)

	require.NoError(t, repo.Upsert(ctx, "u1", 1, 1))
	require.NoError(t, repo.Upsert(ctx, "u2", 1, 1))

	first, err := svc.Checkout(ctx, "u1", "shared-key")
	require.NoError(t, err)
	require.True(t, first.Completed)

	second, err := svc.Checkout(ctx, "u2", "shared-key")
	require.NoError(t, err)
	assert.True(t, second.Completed)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, 2, gateway.callCount())
}

func TestConcurrentCheckoutsWithSameKeyChargeOnce(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{approve: true}
	svc, repo := newTestService(gateway)

	require.NoError(t, repo.Upsert(ctx, "u1", 1, 3))

	const attempts = 8
	results := make([]Result, attempts)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			r, err := svc.Checkout(gctx, "u1", "key-1")
			results[i] = r
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, gateway.callCount())
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestConcurrentCheckoutsDifferentUsersDoNotSerialize(t *testing.T) {
	ctx := context.Background()
	gateway := &stubGateway{approve: true}
	svc, repo := newTestService(gateway)

	const users = 10
	for i := 0; i < users; i++ {
		require.NoError(t, repo.Upsert(ctx, fmt.Sprintf("u%d", i), 1, 1))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < users; i++ {
		g.Go(func() error {
			r, err := svc.Checkout(gctx, fmt.Sprintf("u%d", i), "")
			if err != nil {
				return err
			}
			if !r.Completed {
				return fmt.Errorf("checkout for u%d not completed", i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, users, gateway.callCount())
}
