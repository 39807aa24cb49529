package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// CapacityRepo provides access to the seller_capacity ledger.  Every
// mutation goes through GetForUpdate + Save inside one transaction so
// the pending+active <= max invariant is checked and applied under the
// seller row's exclusive lock; the deciding logic lives in the service
// layer, this type only moves rows.
type CapacityRepo struct {
	db *DB
}

// NewCapacityRepo returns a CapacityRepo bound to the given database.
func NewCapacityRepo(db *DB) *CapacityRepo { return &CapacityRepo{db: db} }

// Create inserts a zeroed ledger row for a new seller.  The quota fields
// stay unset until the seller declares a daily quota.
func (r *CapacityRepo) Create(ctx context.Context, sellerID uint64) error {
	const q = `INSERT INTO seller_capacity (seller_id) VALUES (?)`
	_, err := r.db.q(ctx).ExecContext(ctx, q, sellerID)
	return err
}

// GetForUpdate loads a seller's ledger row under an exclusive row lock.
// It must be called inside WithTx; the lock is held until the enclosing
// transaction commits or rolls back.  Returns ErrSellerNotFound when the
// seller has no ledger row.
func (r *CapacityRepo) GetForUpdate(ctx context.Context, sellerID uint64) (*model.SellerCapacity, error) {
	const q = `SELECT seller_id,
                      max_delivery_orders, active_delivery_orders, pending_delivery_requests,
                      max_pickup_orders, active_pickup_orders, pending_pickup_requests,
                      daily_limit_date
               FROM seller_capacity WHERE seller_id = ? FOR UPDATE`
	return r.scanRow(r.db.q(ctx).QueryRowContext(ctx, q, sellerID))
}

// Get loads a seller's ledger row without locking.  Used for display.
func (r *CapacityRepo) Get(ctx context.Context, sellerID uint64) (*model.SellerCapacity, error) {
	const q = `SELECT seller_id,
                      max_delivery_orders, active_delivery_orders, pending_delivery_requests,
                      max_pickup_orders, active_pickup_orders, pending_pickup_requests,
                      daily_limit_date
               FROM seller_capacity WHERE seller_id = ?`
	return r.scanRow(r.db.q(ctx).QueryRowContext(ctx, q, sellerID))
}

func (r *CapacityRepo) scanRow(row *sql.Row) (*model.SellerCapacity, error) {
	var c model.SellerCapacity
	var limitDate sql.NullTime
	err := row.Scan(&c.SellerID,
		&c.Delivery.Max, &c.Delivery.Active, &c.Delivery.Pending,
		&c.Pickup.Max, &c.Pickup.Active, &c.Pickup.Pending,
		&limitDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	if limitDate.Valid {
		c.DailyLimitDate = limitDate.Time.Format(model.BusinessDateLayout)
	}
	return &c, nil
}

// Save writes all counters and the quota date back.  Callers hold the
// row lock from a prior GetForUpdate in the same transaction.
func (r *CapacityRepo) Save(ctx context.Context, c *model.SellerCapacity) error {
	const q = `UPDATE seller_capacity SET
                   max_delivery_orders = ?, active_delivery_orders = ?, pending_delivery_requests = ?,
                   max_pickup_orders = ?, active_pickup_orders = ?, pending_pickup_requests = ?,
                   daily_limit_date = ?
               WHERE seller_id = ?`
	var limitDate interface{}
	if c.DailyLimitDate != "" {
		limitDate = c.DailyLimitDate
	}
	_, err := r.db.q(ctx).ExecContext(ctx, q,
		c.Delivery.Max, c.Delivery.Active, c.Delivery.Pending,
		c.Pickup.Max, c.Pickup.Active, c.Pickup.Pending,
		limitDate, c.SellerID,
	)
	return err
}
