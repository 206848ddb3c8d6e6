package cart

import (
	"context"
	"time"
)

// Repository is the durable cart-line store, keyed by (userID, productID).
// Upsert must be a single atomic increment-or-insert at the storage layer,
// never a read-modify-write composed by the caller.
type Repository interface {
	// Get returns the user's lines in stable display order
	// (oldest first, then by product id). An empty cart is not an error.
	Get(ctx context.Context, userID string) ([]Line, error)

	// Upsert adds quantity to an existing line or inserts a new one with
	// AddedAt set to now.
	Upsert(ctx context.Context, userID string, productID int64, quantity int) error

	// UpdateQuantity replaces a line's quantity. No-op when the line is absent.
	UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error

	// Remove deletes a line. No-op when absent.
	Remove(ctx context.Context, userID string, productID int64) error

	// BulkRemove deletes every listed product's line in one operation.
	BulkRemove(ctx context.Context, userID string, productIDs []int64) error

	// Clear deletes all of the user's lines. No-op on an empty cart.
	Clear(ctx context.Context, userID string) error

	// Deduct subtracts the given quantity per product from the user's
	// lines, deleting a line when its quantity reaches zero. Products
	// without a line are ignored; quantity beyond the deducted amount
	// stays in the cart.
	Deduct(ctx context.Context, userID string, quantities map[int64]int) error

	// DeleteExpired removes the user's lines added before cutoff and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, userID string, cutoff time.Time) (int, error)

	// DeleteAllExpired removes lines added before cutoff across all users.
	DeleteAllExpired(ctx context.Context, cutoff time.Time) (int, error)

	// SaveForLater snapshots the user's current lines.
	SaveForLater(ctx context.Context, userID string) error

	// GetSaved returns the user's saved snapshot, or nil when none exists.
	GetSaved(ctx context.Context, userID string) (*SavedCart, error)
}
