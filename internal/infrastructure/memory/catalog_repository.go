package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/shopcore/cartservice/internal/domain/catalog"
)

type CatalogRepository struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
}

func NewCatalogRepository(products ...domain.Product) *CatalogRepository {
	r := &CatalogRepository{products: make(map[int64]domain.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Put seeds or replaces a product. The cart core never calls this; it
// exists for composition-root seeding and tests.
func (r *CatalogRepository) Put(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *CatalogRepository) GetByID(ctx context.Context, productID int64) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := p
	return &clone, nil
}

func (r *CatalogRepository) ListExcluding(ctx context.Context, exclude []int64, limit int) ([]domain.Product, error) {
	_ = ctx

	excluded := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, limit)
	ids := make([]int64, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if _, skip := excluded[id]; skip {
			continue
		}
		out = append(out, r.products[id])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
