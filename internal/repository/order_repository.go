package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// OrderRepo provides access to orders and order_items.  Slot booking
// counts come from here as well: a delivery window's booked count is the
// number of non-terminal-by-rejection orders referencing the exact
// (seller, date, start) key, so no separate slot table exists.
type OrderRepo struct {
	db *DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, number, buyer_id, seller_id, status, delivery_type,
                      district_id, delivery_price_cents, subtotal_cents,
                      slot_date, slot_start, slot_end, paid_at, created_at, updated_at`

// Create inserts an order and its items in one statement pair and
// populates the generated order ID.  Must run inside WithTx together
// with the capacity, stock and slot checks of the same admission.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order, items []model.OrderItem) error {
	const q = `INSERT INTO orders (number, buyer_id, seller_id, status, delivery_type,
                                   district_id, delivery_price_cents, subtotal_cents,
                                   slot_date, slot_start, slot_end)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var districtID interface{}
	if o.DistrictID != nil {
		districtID = *o.DistrictID
	}
	var slotDate, slotStart, slotEnd interface{}
	if o.SlotDate != "" {
		slotDate = o.SlotDate
		slotStart = o.SlotStart + ":00"
		slotEnd = o.SlotEnd + ":00"
	}
	res, err := r.db.q(ctx).ExecContext(ctx, q,
		o.Number, o.BuyerID, o.SellerID, string(o.Status), string(o.DeliveryType),
		districtID, o.DeliveryPriceCents, o.SubtotalCents,
		slotDate, slotStart, slotEnd)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	if len(items) == 0 {
		return nil
	}
	insert := `INSERT INTO order_items (order_id, product_id, quantity, price_cents, is_preorder) VALUES `
	args := make([]interface{}, 0, len(items)*5)
	for i := range items {
		if i > 0 {
			insert += ","
		}
		insert += "(?, ?, ?, ?, ?)"
		items[i].OrderID = o.ID
		args = append(args, o.ID, items[i].ProductID, items[i].Quantity, items[i].PriceCents, items[i].IsPreorder)
	}
	_, err = r.db.q(ctx).ExecContext(ctx, insert, args...)
	return err
}

// GetByID loads an order without locking.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	return scanOrder(r.db.q(ctx).QueryRowContext(ctx, q, id))
}

// GetForUpdate loads an order under an exclusive row lock so a status
// transition observes a stable current status.  Must run inside WithTx.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	return scanOrder(r.db.q(ctx).QueryRowContext(ctx, q, id))
}

// Items returns the committed product lines of an order.
func (r *OrderRepo) Items(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, product_id, quantity, price_cents, is_preorder
               FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.q(ctx).QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceCents, &it.IsPreorder); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateStatus writes a new status.  The transition decision happens in
// the service layer under the order's row lock.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	const q = `UPDATE orders SET status = ? WHERE id = ?`
	_, err := r.db.q(ctx).ExecContext(ctx, q, string(status), id)
	return err
}

// MarkPaid records a successful payment timestamp.
func (r *OrderRepo) MarkPaid(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE orders SET paid_at = ? WHERE id = ?`
	_, err := r.db.q(ctx).ExecContext(ctx, q, at.UTC(), id)
	return err
}

// CountSlotBookings counts orders booked into the exact (seller, date,
// start) window, excluding cancelled and rejected orders.  With lock set
// the count runs FOR UPDATE, which serializes concurrent booking commits
// against the same window; listing uses the non-locking variant so read
// traffic does not serialize.
func (r *OrderRepo) CountSlotBookings(ctx context.Context, sellerID uint64, date, start string, lock bool) (int, error) {
	q := `SELECT COUNT(*) FROM orders
          WHERE seller_id = ? AND slot_date = ? AND slot_start = ?
            AND status NOT IN ('cancelled','rejected')`
	if lock {
		q += ` FOR UPDATE`
	}
	var n int
	if err := r.db.q(ctx).QueryRowContext(ctx, q, sellerID, date, start+":00").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListByBuyer returns a buyer's orders, newest first.
func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = ? ORDER BY id DESC`
	return r.list(ctx, q, buyerID)
}

// ListBySeller returns a seller's orders, newest first.
func (r *OrderRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE seller_id = ? ORDER BY id DESC`
	return r.list(ctx, q, sellerID)
}

func (r *OrderRepo) list(ctx context.Context, q string, arg interface{}) ([]model.Order, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrderRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row *sql.Row) (*model.Order, error) {
	o, err := scanOrderRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// scanOrderRow scans one orders row.  TIME columns arrive as "HH:MM:SS"
// strings and DATE columns as midnight timestamps; both are trimmed to
// the layouts the model uses.
func scanOrderRow(scan func(...interface{}) error) (*model.Order, error) {
	var o model.Order
	var status, deliveryType string
	var districtID sql.NullInt64
	var slotDate, paidAt sql.NullTime
	var slotStart, slotEnd sql.NullString
	err := scan(&o.ID, &o.Number, &o.BuyerID, &o.SellerID, &status, &deliveryType,
		&districtID, &o.DeliveryPriceCents, &o.SubtotalCents,
		&slotDate, &slotStart, &slotEnd, &paidAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	o.DeliveryType = model.DeliveryType(deliveryType)
	if districtID.Valid {
		id := uint64(districtID.Int64)
		o.DistrictID = &id
	}
	if slotDate.Valid {
		o.SlotDate = slotDate.Time.Format(model.BusinessDateLayout)
	}
	if slotStart.Valid && len(slotStart.String) >= 5 {
		o.SlotStart = slotStart.String[:5]
	}
	if slotEnd.Valid && len(slotEnd.String) >= 5 {
		o.SlotEnd = slotEnd.String[:5]
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return &o, nil
}
