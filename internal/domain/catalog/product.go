package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog: product not found")

// Product is catalog data, read-only from the cart core's perspective.
// Stock is never decremented by checkout.
type Product struct {
	ID    int64
	Name  string
	Price float64
	Stock int
}

type Repository interface {
	GetByID(ctx context.Context, productID int64) (*Product, error)

	// ListExcluding returns up to limit products whose ids are not in
	// exclude, used for recommendations.
	ListExcluding(ctx context.Context, exclude []int64, limit int) ([]Product, error)
}
