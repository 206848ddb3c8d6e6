package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/shopcore/cartservice/internal/domain/cart"
)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Get(ctx context.Context, userID string) ([]domain.Line, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, product_id, quantity, added_at
		FROM cart_lines WHERE user_id = ?
		ORDER BY added_at, product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.Line
	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.AddedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Upsert is a single atomic statement: concurrent adds for the same
// product both land, neither increment is lost.
func (r *CartRepository) Upsert(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_lines (user_id, product_id, quantity, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = quantity + excluded.quantity`,
		userID, productID, quantity, time.Now().UTC())
	return err
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE cart_lines SET quantity = ?
		WHERE user_id = ? AND product_id = ?`,
		quantity, userID, productID)
	return err
}

func (r *CartRepository) Remove(ctx context.Context, userID string, productID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = ? AND product_id = ?`,
		userID, productID)
	return err
}

func (r *CartRepository) BulkRemove(ctx context.Context, userID string, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(productIDs)), ",")
	args := make([]any, 0, len(productIDs)+1)
	args = append(args, userID)
	for _, id := range productIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = ? AND product_id IN (`+placeholders+`)`,
		args...)
	return err
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ?`, userID)
	return err
}

// Deduct runs in one transaction. Lines fully consumed are deleted before
// the remainder is decremented, keeping the quantity > 0 check satisfied.
func (r *CartRepository) Deduct(ctx context.Context, userID string, quantities map[int64]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for productID, qty := range quantities {
		if qty <= 0 {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM cart_lines
			WHERE user_id = ? AND product_id = ? AND quantity <= ?`,
			userID, productID, qty)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE cart_lines SET quantity = quantity - ?
			WHERE user_id = ? AND product_id = ?`,
			qty, userID, productID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CartRepository) DeleteExpired(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = ? AND added_at < ?`,
		userID, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func (r *CartRepository) DeleteAllExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE added_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

type savedLine struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

func (r *CartRepository) SaveForLater(ctx context.Context, userID string) error {
	lines, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	snapshot := make([]savedLine, 0, len(lines))
	for _, l := range lines {
		snapshot = append(snapshot, savedLine{ProductID: l.ProductID, Quantity: l.Quantity, AddedAt: l.AddedAt})
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO saved_carts (user_id, lines, saved_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET lines = excluded.lines, saved_at = excluded.saved_at`,
		userID, string(body), time.Now().UTC())
	return err
}

func (r *CartRepository) GetSaved(ctx context.Context, userID string) (*domain.SavedCart, error) {
	var body string
	var savedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT lines, saved_at FROM saved_carts WHERE user_id = ?`, userID).
		Scan(&body, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot []savedLine
	if err := json.Unmarshal([]byte(body), &snapshot); err != nil {
		return nil, err
	}
	saved := &domain.SavedCart{UserID: userID, SavedAt: savedAt}
	for _, s := range snapshot {
		saved.Lines = append(saved.Lines, domain.Line{
			UserID:    userID,
			ProductID: s.ProductID,
			Quantity:  s.Quantity,
			AddedAt:   s.AddedAt,
		})
	}
	return saved, nil
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
