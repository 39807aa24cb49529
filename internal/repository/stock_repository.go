package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// StockRepo provides access to product rows and their stock counters.
// The reserved counter is only ever changed through a read-modify-write
// under the product row's exclusive lock (GetForUpdate + SaveQuantities
// inside one transaction); there is no global stock lock, so unrelated
// products never serialize against each other.
type StockRepo struct {
	db *DB
}

// NewStockRepo returns a StockRepo bound to the given database.
func NewStockRepo(db *DB) *StockRepo { return &StockRepo{db: db} }

const productColumns = `id, seller_id, name, price_cents, is_composed,
                        total_quantity, reserved_quantity, created_at, updated_at`

// Create inserts a new product and populates its generated ID.
func (r *StockRepo) Create(ctx context.Context, p *model.Product) error {
	const q = `INSERT INTO products (seller_id, name, price_cents, is_composed, total_quantity, reserved_quantity)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.q(ctx).ExecContext(ctx, q,
		p.SellerID, p.Name, p.PriceCents, p.IsComposed, p.TotalQuantity, p.ReservedQuantity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Get loads a product without locking.
func (r *StockRepo) Get(ctx context.Context, productID uint64) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return r.scanRow(r.db.q(ctx).QueryRowContext(ctx, q, productID))
}

// GetForUpdate loads a product under an exclusive row lock.  Must run
// inside WithTx; the lock covers the read-modify-write of the stock
// counters until the transaction ends.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID uint64) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = ? FOR UPDATE`
	return r.scanRow(r.db.q(ctx).QueryRowContext(ctx, q, productID))
}

func (r *StockRepo) scanRow(row *sql.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.PriceCents, &p.IsComposed,
		&p.TotalQuantity, &p.ReservedQuantity, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveQuantities writes both stock counters back.  Callers hold the row
// lock from a prior GetForUpdate in the same transaction.
func (r *StockRepo) SaveQuantities(ctx context.Context, productID uint64, total, reserved int) error {
	const q = `UPDATE products SET total_quantity = ?, reserved_quantity = ? WHERE id = ?`
	_, err := r.db.q(ctx).ExecContext(ctx, q, total, reserved, productID)
	return err
}
