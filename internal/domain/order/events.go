package order

import "time"

// CheckoutCompletedEvent is emitted after payment succeeded and the cart
// was cleared.
type CheckoutCompletedEvent struct {
	AttemptID  string    `json:"attempt_id"`
	UserID     string    `json:"user_id"`
	LineCount  int       `json:"line_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (CheckoutCompletedEvent) EventName() string { return "checkout.completed" }

// CheckoutFailedEvent is emitted when a checkout attempt ends without a
// cleared cart: empty cart or declined payment.
type CheckoutFailedEvent struct {
	AttemptID  string    `json:"attempt_id"`
	UserID     string    `json:"user_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (CheckoutFailedEvent) EventName() string { return "checkout.failed" }

func NewCheckoutFailedEvent(attemptID, userID, reason string) CheckoutFailedEvent {
	return CheckoutFailedEvent{
		AttemptID:  attemptID,
		UserID:     userID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
