package sqlite

import (
	"context"
	"database/sql"
	"strings"

	domain "github.com/shopcore/cartservice/internal/domain/catalog"
)

// CatalogRepository reads product data the catalog service maintains. The
// cart core never writes products; Seed exists only to load demo data at
// boot.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetByID(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price, stock FROM products WHERE id = ?`, productID).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) ListExcluding(ctx context.Context, exclude []int64, limit int) ([]domain.Product, error) {
	query := `SELECT id, name, price, stock FROM products`
	args := make([]any, 0, len(exclude)+1)
	if len(exclude) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(exclude)), ",")
		query += ` WHERE id NOT IN (` + placeholders + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Seed inserts products that are not present yet.
func (r *CatalogRepository) Seed(ctx context.Context, products []domain.Product) error {
	for _, p := range products {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO products (id, name, price, stock) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Price, p.Stock)
		if err != nil {
			return err
		}
	}
	return nil
}
