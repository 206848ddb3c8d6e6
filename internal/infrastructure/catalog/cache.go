// Package catalogcache wraps a catalog repository with a read-through,
// time-bounded LRU so hot products do not hit storage on every cart
// operation. Staleness is bounded by the TTL; cart correctness does not
// depend on fresh stock numbers (checkout does not re-validate stock).
package catalogcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	domain "github.com/shopcore/cartservice/internal/domain/catalog"
)

type Repository struct {
	next  domain.Repository
	cache *lru.LRU[int64, domain.Product]
}

func New(next domain.Repository, size int, ttl time.Duration) *Repository {
	return &Repository{
		next:  next,
		cache: lru.NewLRU[int64, domain.Product](size, nil, ttl),
	}
}

func (r *Repository) GetByID(ctx context.Context, productID int64) (*domain.Product, error) {
	if p, ok := r.cache.Get(productID); ok {
		clone := p
		return &clone, nil
	}

	p, err := r.next.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	r.cache.Add(productID, *p)
	clone := *p
	return &clone, nil
}

// ListExcluding bypasses the cache; recommendation listings are not on the
// per-item hot path.
func (r *Repository) ListExcluding(ctx context.Context, exclude []int64, limit int) ([]domain.Product, error) {
	return r.next.ListExcluding(ctx, exclude, limit)
}
