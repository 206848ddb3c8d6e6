package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/shopcore/cartservice/internal/domain/cart"
)

// CartRepository keeps cart lines in process memory. Mutations hold the
// write lock for their whole statement, giving the same atomicity the SQL
// store gets from single-statement writes.
type CartRepository struct {
	mu    sync.RWMutex
	lines map[string]map[int64]*domain.Line
	saved map[string]*domain.SavedCart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		lines: make(map[string]map[int64]*domain.Line),
		saved: make(map[string]*domain.SavedCart),
	}
}

func (r *CartRepository) Get(ctx context.Context, userID string) ([]domain.Line, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked(userID), nil
}

func (r *CartRepository) Upsert(ctx context.Context, userID string, productID int64, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.lines[userID]
	if !ok {
		cart = make(map[int64]*domain.Line)
		r.lines[userID] = cart
	}
	if line, exists := cart[productID]; exists {
		line.Quantity += quantity
		return nil
	}
	cart[productID] = &domain.Line{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	}
	return nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if line, ok := r.lines[userID][productID]; ok {
		line.Quantity = quantity
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID string, productID int64) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lines[userID], productID)
	return nil
}

func (r *CartRepository) BulkRemove(ctx context.Context, userID string, productIDs []int64) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range productIDs {
		delete(r.lines[userID], id)
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lines, userID)
	return nil
}

func (r *CartRepository) Deduct(ctx context.Context, userID string, quantities map[int64]int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.lines[userID]
	for id, qty := range quantities {
		if qty <= 0 {
			continue
		}
		line, ok := cart[id]
		if !ok {
			continue
		}
		if line.Quantity <= qty {
			delete(cart, id)
			continue
		}
		line.Quantity -= qty
	}
	return nil
}

func (r *CartRepository) DeleteExpired(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deleteExpiredLocked(r.lines[userID], cutoff), nil
}

func (r *CartRepository) DeleteAllExpired(ctx context.Context, cutoff time.Time) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, cart := range r.lines {
		removed += r.deleteExpiredLocked(cart, cutoff)
	}
	return removed, nil
}

func (r *CartRepository) SaveForLater(ctx context.Context, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	r.saved[userID] = &domain.SavedCart{
		UserID:  userID,
		Lines:   r.snapshotLocked(userID),
		SavedAt: time.Now().UTC(),
	}
	return nil
}

func (r *CartRepository) GetSaved(ctx context.Context, userID string) (*domain.SavedCart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	saved, ok := r.saved[userID]
	if !ok {
		return nil, nil
	}
	clone := &domain.SavedCart{
		UserID:  saved.UserID,
		Lines:   append([]domain.Line(nil), saved.Lines...),
		SavedAt: saved.SavedAt,
	}
	return clone, nil
}

func (r *CartRepository) deleteExpiredLocked(cart map[int64]*domain.Line, cutoff time.Time) int {
	removed := 0
	for id, line := range cart {
		if line.AddedAt.Before(cutoff) {
			delete(cart, id)
			removed++
		}
	}
	return removed
}

func (r *CartRepository) snapshotLocked(userID string) []domain.Line {
	cart := r.lines[userID]
	out := make([]domain.Line, 0, len(cart))
	for _, line := range cart {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}
