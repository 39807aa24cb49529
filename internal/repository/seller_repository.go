package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// SellerRepo provides access to seller rows, including the slot-booking
// configuration and the weekday schedule that the slot allocator turns
// into delivery windows.
type SellerRepo struct {
	db *DB
}

// NewSellerRepo returns a SellerRepo bound to the given database.
func NewSellerRepo(db *DB) *SellerRepo { return &SellerRepo{db: db} }

const sellerColumns = `id, owner_user_id, name, is_blocked, working_hours,
                       slot_duration_min, slot_lead_time_min, slot_days_ahead,
                       deliveries_per_slot, created_at, updated_at`

// Create inserts a seller and populates the generated ID.  The capacity
// ledger row is created separately in the same transaction.
func (r *SellerRepo) Create(ctx context.Context, s *model.Seller) error {
	const q = `INSERT INTO sellers (owner_user_id, name, is_blocked, working_hours,
                                    slot_duration_min, slot_lead_time_min, slot_days_ahead, deliveries_per_slot)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var hours interface{}
	if len(s.WorkingHours) > 0 {
		raw, err := json.Marshal(s.WorkingHours)
		if err != nil {
			return err
		}
		hours = raw
	}
	res, err := r.db.q(ctx).ExecContext(ctx, q,
		s.OwnerUserID, s.Name, s.IsBlocked, hours,
		s.SlotDurationMin, s.SlotLeadTimeMin, s.SlotDaysAhead, s.DeliveriesPerSlot)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID loads a seller and decodes its weekday schedule.  Returns
// ErrSellerNotFound when no row exists.
func (r *SellerRepo) GetByID(ctx context.Context, id uint64) (*model.Seller, error) {
	q := `SELECT ` + sellerColumns + ` FROM sellers WHERE id = ?`
	return r.scanRow(r.db.q(ctx).QueryRowContext(ctx, q, id))
}

// GetByOwner loads the seller owned by the given user account.
func (r *SellerRepo) GetByOwner(ctx context.Context, ownerUserID uint64) (*model.Seller, error) {
	q := `SELECT ` + sellerColumns + ` FROM sellers WHERE owner_user_id = ?`
	return r.scanRow(r.db.q(ctx).QueryRowContext(ctx, q, ownerUserID))
}

func (r *SellerRepo) scanRow(row *sql.Row) (*model.Seller, error) {
	var s model.Seller
	var rawHours []byte
	err := row.Scan(&s.ID, &s.OwnerUserID, &s.Name, &s.IsBlocked, &rawHours,
		&s.SlotDurationMin, &s.SlotLeadTimeMin, &s.SlotDaysAhead,
		&s.DeliveriesPerSlot, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	hours, err := model.ParseWeekSchedule(rawHours)
	if err != nil {
		// A corrupt schedule column means "closed"; it must not take the
		// seller's whole profile down.
		hours = model.WeekSchedule{}
	}
	s.WorkingHours = hours
	return &s, nil
}
