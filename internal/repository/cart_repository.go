package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// CartRepo provides access to cart_lines, the per-buyer-per-product hold
// rows.  A line's reserved_at timestamp drives the TTL rule: the sweeper
// reclaims lines whose hold is older than the TTL, while pre-order lines
// (reserved_at NULL) are exempt.
type CartRepo struct {
	db *DB
}

// NewCartRepo returns a CartRepo bound to the given database.
func NewCartRepo(db *DB) *CartRepo { return &CartRepo{db: db} }

const cartColumns = `id, buyer_id, product_id, quantity, is_preorder, reserved_at, created_at`

// GetForUpdate loads a buyer's line under an exclusive row lock.  Must
// run inside WithTx, after the product row lock is taken; this ordering
// is what decides races between checkout/extension and the sweeper.
func (r *CartRepo) GetForUpdate(ctx context.Context, buyerID, productID uint64) (*model.CartLine, error) {
	q := `SELECT ` + cartColumns + ` FROM cart_lines WHERE buyer_id = ? AND product_id = ? FOR UPDATE`
	return scanCartLine(r.db.q(ctx).QueryRowContext(ctx, q, buyerID, productID))
}

// Upsert creates the buyer's line for a product or replaces its quantity
// and reservation timestamp.  The unique (buyer_id, product_id) key makes
// the replace path race-free.
func (r *CartRepo) Upsert(ctx context.Context, line *model.CartLine) error {
	const q = `INSERT INTO cart_lines (buyer_id, product_id, quantity, is_preorder, reserved_at)
               VALUES (?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE quantity = VALUES(quantity),
                                       is_preorder = VALUES(is_preorder),
                                       reserved_at = VALUES(reserved_at)`
	var reservedAt interface{}
	if line.ReservedAt != nil {
		reservedAt = line.ReservedAt.UTC()
	}
	_, err := r.db.q(ctx).ExecContext(ctx, q,
		line.BuyerID, line.ProductID, line.Quantity, line.IsPreorder, reservedAt)
	return err
}

// DeleteByID removes a line by primary key.  Used by the sweeper after
// releasing the line's stock.
func (r *CartRepo) DeleteByID(ctx context.Context, id uint64) error {
	const q = `DELETE FROM cart_lines WHERE id = ?`
	_, err := r.db.q(ctx).ExecContext(ctx, q, id)
	return err
}

// ListByBuyer returns all of a buyer's lines, oldest first.
func (r *CartRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.CartLine, error) {
	q := `SELECT ` + cartColumns + ` FROM cart_lines WHERE buyer_id = ? ORDER BY id`
	rows, err := r.db.q(ctx).QueryContext(ctx, q, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCartLines(rows)
}

// ListExpired returns up to limit non-preorder lines whose hold is older
// than the cutoff.  Pre-order lines and lines without a reservation are
// never returned.  The read does not lock; the sweeper re-locks each
// product row before releasing stock, which resolves races with
// concurrent extension or checkout.
func (r *CartRepo) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.CartLine, error) {
	q := `SELECT ` + cartColumns + ` FROM cart_lines
          WHERE is_preorder = 0 AND reserved_at IS NOT NULL AND reserved_at < ?
          ORDER BY reserved_at LIMIT ?`
	rows, err := r.db.q(ctx).QueryContext(ctx, q, cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCartLines(rows)
}

func scanCartLine(row *sql.Row) (*model.CartLine, error) {
	var l model.CartLine
	var reservedAt sql.NullTime
	err := row.Scan(&l.ID, &l.BuyerID, &l.ProductID, &l.Quantity, &l.IsPreorder, &reservedAt, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, err
	}
	if reservedAt.Valid {
		t := reservedAt.Time
		l.ReservedAt = &t
	}
	return &l, nil
}

func collectCartLines(rows *sql.Rows) ([]model.CartLine, error) {
	var lines []model.CartLine
	for rows.Next() {
		var l model.CartLine
		var reservedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.BuyerID, &l.ProductID, &l.Quantity, &l.IsPreorder, &reservedAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		if reservedAt.Valid {
			t := reservedAt.Time
			l.ReservedAt = &t
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
