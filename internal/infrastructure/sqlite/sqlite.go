// Package sqlite provides the durable cart and catalog stores backed by
// modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cart_lines (
	user_id    TEXT    NOT NULL,
	product_id INTEGER NOT NULL,
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	added_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, product_id)
);

CREATE TABLE IF NOT EXISTS saved_carts (
	user_id  TEXT PRIMARY KEY,
	lines    TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id    INTEGER PRIMARY KEY,
	name  TEXT NOT NULL,
	price REAL NOT NULL,
	stock INTEGER NOT NULL
);
`

// Open opens the database at path, creating parent directories as needed.
// WAL plus a busy timeout keeps concurrent request handlers from tripping
// over each other's writes.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return sql.Open("sqlite", path+"?_pragma=busy_timeout=5000&_pragma=journal_mode=WAL")
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
