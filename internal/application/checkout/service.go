package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopcore/cartservice/internal/domain/cart"
	"github.com/shopcore/cartservice/internal/domain/order"
	"github.com/shopcore/cartservice/internal/domain/outbox"
	"github.com/shopcore/cartservice/internal/domain/payment"
	"github.com/shopcore/cartservice/internal/pkg/logging"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome names the terminal state of one checkout attempt.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeEmptyCart Outcome = "empty_cart"
	OutcomeDeclined  Outcome = "payment_declined"
)

const replayCacheSize = 4096

type Result struct {
	AttemptID string
	Completed bool
	Outcome   Outcome
}

// Service drives one checkout attempt through
// load cart -> build order -> pay -> settle on success.
//
// Attempts are serialized per user. Settlement deducts exactly the billed
// quantities rather than clearing the cart, so a line added while the
// gateway call was in flight stays in the cart afterwards. An optional
// caller-supplied idempotency key makes a retried checkout safe against
// double payment: a replayed key returns the recorded outcome without
// touching the gateway.
type Service struct {
	carts     cart.Repository
	gateway   payment.Gateway
	ids       IDGenerator
	publisher outbox.Publisher

	tracer   trace.Tracer
	outcomes *prometheus.CounterVec

	locks   sync.Map // userID -> *sync.Mutex
	replays *lru.LRU[string, Result]
}

func NewService(
	carts cart.Repository,
	gateway payment.Gateway,
	ids IDGenerator,
	publisher outbox.Publisher,
	outcomes *prometheus.CounterVec,
	idempotencyTTL time.Duration,
) *Service {
	return &Service{
		carts:     carts,
		gateway:   gateway,
		ids:       ids,
		publisher: publisher,
		tracer:    otel.Tracer("checkout"),
		outcomes:  outcomes,
		replays:   lru.NewLRU[string, Result](replayCacheSize, nil, idempotencyTTL),
	}
}

// Checkout runs a fresh traversal of the attempt state machine. There is
// no persisted in-flight record; a failed attempt can simply be retried.
// EmptyCart and PaymentDeclined both surface as Completed=false.
func (s *Service) Checkout(ctx context.Context, userID, idempotencyKey string) (Result, error) {
	if err := cart.ValidateUserID(userID); err != nil {
		return Result{}, err
	}

	if r, ok := s.replay(userID, idempotencyKey); ok {
		return r, nil
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// A retry may have raced us to the lock.
	if r, ok := s.replay(userID, idempotencyKey); ok {
		return r, nil
	}

	attemptID := s.ids.NewID()
	logger := logging.FromContext(ctx).With(
		zap.String("user_id", userID),
		zap.String("attempt_id", attemptID),
	)

	ctx, span := s.tracer.Start(ctx, "Checkout",
		trace.WithAttributes(
			attribute.String("checkout.attempt_id", attemptID),
			attribute.String("checkout.user_id", userID),
		),
	)
	defer span.End()

	lines, err := s.carts.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "CART_LOAD_FAILED")
		logger.Error("checkout_cart_load_failed", zap.Error(err))
		return Result{}, fmt.Errorf("checkout: load cart: %w", err)
	}

	if len(lines) == 0 {
		// Gateway is never invoked for an empty cart.
		logger.Warn("checkout_rejected_empty_cart")
		return s.finish(ctx, span, attemptID, userID, idempotencyKey, OutcomeEmptyCart, 0), nil
	}

	o := order.BuildFromCart(userID, lines)
	span.SetAttributes(attribute.Int("checkout.line_count", len(o.Lines)))

	ok, payErr := s.gateway.ProcessPayment(ctx, o)
	if payErr != nil || !ok {
		// A gateway transport error is a decline as far as the cart is
		// concerned: nothing is removed, the user can retry.
		if payErr != nil {
			span.RecordError(payErr)
			logger.Warn("checkout_gateway_error", zap.Error(payErr))
		} else {
			logger.Warn("checkout_payment_declined")
		}
		return s.finish(ctx, span, attemptID, userID, idempotencyKey, OutcomeDeclined, len(o.Lines)), nil
	}

	// Record the outcome before settling so a retried key cannot trigger
	// a second payment even if the settlement below fails.
	result := s.finish(ctx, span, attemptID, userID, idempotencyKey, OutcomeCompleted, len(o.Lines))

	billed := make(map[int64]int, len(o.Lines))
	for _, l := range o.Lines {
		billed[l.ProductID] = l.Quantity
	}
	if err := s.carts.Deduct(ctx, userID, billed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "CART_SETTLE_FAILED")
		logger.Error("checkout_cart_settle_failed", zap.Error(err))
		return result, fmt.Errorf("checkout: settle cart after payment: %w", err)
	}

	logger.Info("checkout_completed", zap.Int("lines", len(o.Lines)))
	return result, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, attemptID, userID, key string, outcome Outcome, lineCount int) Result {
	result := Result{
		AttemptID: attemptID,
		Completed: outcome == OutcomeCompleted,
		Outcome:   outcome,
	}

	span.SetAttributes(attribute.String("checkout.outcome", string(outcome)))
	if result.Completed {
		span.SetStatus(codes.Ok, "OK")
	} else {
		span.SetStatus(codes.Ok, string(outcome))
	}

	if s.outcomes != nil {
		s.outcomes.WithLabelValues(string(outcome)).Inc()
	}

	if key != "" {
		s.replays.Add(replayKey(userID, key), result)
	}

	s.publish(ctx, attemptID, userID, outcome, lineCount)
	return result
}

func (s *Service) publish(ctx context.Context, attemptID, userID string, outcome Outcome, lineCount int) {
	if s.publisher == nil {
		return
	}
	var e outbox.Event
	if outcome == OutcomeCompleted {
		e = order.CheckoutCompletedEvent{
			AttemptID:  attemptID,
			UserID:     userID,
			LineCount:  lineCount,
			OccurredAt: time.Now().UTC(),
		}
	} else {
		e = order.NewCheckoutFailedEvent(attemptID, userID, string(outcome))
	}
	// Event delivery is best effort; checkout outcome is already decided.
	if err := s.publisher.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("checkout_event_publish_failed",
			zap.String("attempt_id", attemptID),
			zap.Error(err),
		)
	}
}

func (s *Service) replay(userID, key string) (Result, bool) {
	if key == "" {
		return Result{}, false
	}
	return s.replays.Get(replayKey(userID, key))
}

func (s *Service) userLock(userID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func replayKey(userID, key string) string {
	return userID + "\x00" + key
}
