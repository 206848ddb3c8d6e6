package cart

import (
	"context"
	"fmt"

	domain "github.com/shopcore/cartservice/internal/domain/cart"
	"github.com/shopcore/cartservice/internal/domain/catalog"
	"github.com/shopcore/cartservice/internal/domain/pricing"
	"github.com/shopcore/cartservice/internal/domain/stock"
	"github.com/shopcore/cartservice/internal/pkg/logging"
	"go.uber.org/zap"
)

const recommendationLimit = 5

// Service implements the cart use cases: line management, pricing,
// validation, save-for-later, recommendations, and guest-cart merge.
type Service struct {
	repo    domain.Repository
	catalog catalog.Repository
}

func NewService(repo domain.Repository, catalogRepo catalog.Repository) *Service {
	return &Service{
		repo:    repo,
		catalog: catalogRepo,
	}
}

func (s *Service) Get(ctx context.Context, userID string) ([]domain.Line, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	lines, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logStorageError(ctx, "get_cart", userID, err)
		return nil, fmt.Errorf("cart: get: %w", err)
	}
	return lines, nil
}

// Add validates input and stock, then atomically increments or inserts the
// line. Validation failures leave the cart untouched.
func (s *Service) Add(ctx context.Context, userID string, productID int64, quantity int) error {
	if _, err := domain.NewLine(userID, productID, quantity); err != nil {
		return err
	}
	if err := stock.Validate(ctx, s.catalog, productID, quantity); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, userID, productID, quantity); err != nil {
		s.logStorageError(ctx, "add_to_cart", userID, err)
		return fmt.Errorf("cart: add: %w", err)
	}
	return nil
}

// UpdateQuantity replaces (not adds to) the line's quantity. A line that
// does not exist is a no-op, matching the store contract.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	if _, err := domain.NewLine(userID, productID, quantity); err != nil {
		return err
	}
	if err := stock.Validate(ctx, s.catalog, productID, quantity); err != nil {
		return err
	}
	if err := s.repo.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		s.logStorageError(ctx, "update_cart_item", userID, err)
		return fmt.Errorf("cart: update quantity: %w", err)
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, userID string, productID int64) error {
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}
	if productID <= 0 {
		return domain.ErrInvalidProduct
	}
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		s.logStorageError(ctx, "remove_from_cart", userID, err)
		return fmt.Errorf("cart: remove: %w", err)
	}
	return nil
}

func (s *Service) BulkRemove(ctx context.Context, userID string, productIDs []int64) error {
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}
	for _, id := range productIDs {
		if id <= 0 {
			return domain.ErrInvalidProduct
		}
	}
	if err := s.repo.BulkRemove(ctx, userID, productIDs); err != nil {
		s.logStorageError(ctx, "bulk_remove", userID, err)
		return fmt.Errorf("cart: bulk remove: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		s.logStorageError(ctx, "clear_cart", userID, err)
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

// Summary prices the current cart. A product missing from the catalog
// contributes zero to the subtotal instead of failing the whole summary.
func (s *Service) Summary(ctx context.Context, userID string) (pricing.Summary, error) {
	lines, err := s.Get(ctx, userID)
	if err != nil {
		return pricing.Summary{}, err
	}
	return pricing.Compute(lines, func(productID int64) (float64, bool) {
		p, err := s.catalog.GetByID(ctx, productID)
		if err != nil {
			return 0, false
		}
		return p.Price, true
	}), nil
}

// Validate reports whether every line in the cart can currently be
// fulfilled from catalog stock.
func (s *Service) Validate(ctx context.Context, userID string) (bool, error) {
	lines, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if err := stock.Validate(ctx, s.catalog, l.ProductID, l.Quantity); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) SaveForLater(ctx context.Context, userID string) error {
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}
	if err := s.repo.SaveForLater(ctx, userID); err != nil {
		s.logStorageError(ctx, "save_cart_for_later", userID, err)
		return fmt.Errorf("cart: save for later: %w", err)
	}
	return nil
}

func (s *Service) GetSaved(ctx context.Context, userID string) (*domain.SavedCart, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	saved, err := s.repo.GetSaved(ctx, userID)
	if err != nil {
		s.logStorageError(ctx, "get_saved_cart", userID, err)
		return nil, fmt.Errorf("cart: get saved: %w", err)
	}
	return saved, nil
}

// Recommendations returns catalog products the user does not already have
// in the cart.
func (s *Service) Recommendations(ctx context.Context, userID string) ([]catalog.Product, error) {
	lines, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude := make([]int64, 0, len(lines))
	for _, l := range lines {
		exclude = append(exclude, l.ProductID)
	}
	return s.catalog.ListExcluding(ctx, exclude, recommendationLimit)
}

// MergeGuestCart folds an anonymous cart into the account cart: each guest
// line is upserted into the target (summing into any existing line), and
// the guest cart is cleared only after every upsert succeeded. A failure
// mid-merge leaves the remaining guest lines in place so the merge can be
// retried.
func (s *Service) MergeGuestCart(ctx context.Context, guestID, userID string) error {
	if err := domain.ValidateUserID(guestID); err != nil {
		return err
	}
	if err := domain.ValidateUserID(userID); err != nil {
		return err
	}

	guestLines, err := s.repo.Get(ctx, guestID)
	if err != nil {
		s.logStorageError(ctx, "merge_guest_cart", guestID, err)
		return fmt.Errorf("cart: merge: load guest cart: %w", err)
	}

	for _, l := range guestLines {
		if err := s.repo.Upsert(ctx, userID, l.ProductID, l.Quantity); err != nil {
			s.logStorageError(ctx, "merge_guest_cart", userID, err)
			return fmt.Errorf("cart: merge: upsert product %d: %w", l.ProductID, err)
		}
	}

	if err := s.repo.Clear(ctx, guestID); err != nil {
		s.logStorageError(ctx, "merge_guest_cart", guestID, err)
		return fmt.Errorf("cart: merge: clear guest cart: %w", err)
	}

	logging.FromContext(ctx).Info("guest_cart_merged",
		zap.String("guest_id", guestID),
		zap.String("user_id", userID),
		zap.Int("lines", len(guestLines)),
	)
	return nil
}

func (s *Service) logStorageError(ctx context.Context, op, userID string, err error) {
	logging.FromContext(ctx).Error("cart_storage_error",
		zap.String("operation", op),
		zap.String("user_id", userID),
		zap.Error(err),
	)
}
