package cart

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserRequired    = errors.New("cart: user id is required")
	ErrInvalidProduct  = errors.New("cart: product id must be greater than zero")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

// Line is one (product, quantity) pairing owned by a user's cart.
// At most one line exists per (UserID, ProductID); adding the same product
// again sums quantities instead of creating a duplicate.
type Line struct {
	UserID    string
	ProductID int64
	Quantity  int
	AddedAt   time.Time
}

func NewLine(userID string, productID int64, quantity int) (*Line, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	if productID <= 0 {
		return nil, ErrInvalidProduct
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Line{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	}, nil
}

func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserRequired
	}
	return nil
}

// SavedCart is a snapshot of a user's cart stored separately from the live
// cart ("save for later").
type SavedCart struct {
	UserID  string
	Lines   []Line
	SavedAt time.Time
}
