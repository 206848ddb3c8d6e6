// Package stock checks requested quantities against catalog availability.
package stock

import (
	"context"
	"errors"

	"github.com/shopcore/cartservice/internal/domain/catalog"
)

var ErrInsufficient = errors.New("stock: requested quantity exceeds available stock")

// Check verifies that quantity of the given product can be fulfilled.
func Check(p *catalog.Product, quantity int) error {
	if p == nil {
		return catalog.ErrNotFound
	}
	if quantity > p.Stock {
		return ErrInsufficient
	}
	return nil
}

// Validate looks the product up and checks the requested quantity against it.
func Validate(ctx context.Context, repo catalog.Repository, productID int64, quantity int) error {
	p, err := repo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	return Check(p, quantity)
}
