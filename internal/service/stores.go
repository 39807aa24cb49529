// Package service implements the order admission and reservation engine:
// the seller capacity ledger, the stock reservation store, the delivery
// slot allocator, the order state machine that ties them together and
// the background expiry sweeper.  Services operate on narrow store
// interfaces so the engine logic can be exercised against in-memory
// fakes; the production implementations live in internal/repository and
// provide row-level locking through SELECT ... FOR UPDATE.
package service

import (
	"context"
	"time"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// TxRunner runs a function inside a single storage transaction.  All
// multi-resource operations (order creation, cancellation, the sweeper's
// per-line release) are all-or-nothing through this boundary.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SellerStore loads seller profiles and their slot configuration.
type SellerStore interface {
	Create(ctx context.Context, s *model.Seller) error
	GetByID(ctx context.Context, id uint64) (*model.Seller, error)
	GetByOwner(ctx context.Context, ownerUserID uint64) (*model.Seller, error)
}

// CapacityStore moves seller_capacity rows.  GetForUpdate must hold an
// exclusive lock on the seller's row until the transaction ends.
type CapacityStore interface {
	Create(ctx context.Context, sellerID uint64) error
	Get(ctx context.Context, sellerID uint64) (*model.SellerCapacity, error)
	GetForUpdate(ctx context.Context, sellerID uint64) (*model.SellerCapacity, error)
	Save(ctx context.Context, c *model.SellerCapacity) error
}

// StockStore moves product rows.  GetForUpdate must hold an exclusive
// lock on the product's row until the transaction ends; every reserved
// counter mutation happens between GetForUpdate and SaveQuantities.
type StockStore interface {
	Create(ctx context.Context, p *model.Product) error
	Get(ctx context.Context, productID uint64) (*model.Product, error)
	GetForUpdate(ctx context.Context, productID uint64) (*model.Product, error)
	SaveQuantities(ctx context.Context, productID uint64, total, reserved int) error
}

// CartStore moves cart hold lines.
type CartStore interface {
	GetForUpdate(ctx context.Context, buyerID, productID uint64) (*model.CartLine, error)
	Upsert(ctx context.Context, line *model.CartLine) error
	DeleteByID(ctx context.Context, id uint64) error
	ListByBuyer(ctx context.Context, buyerID uint64) ([]model.CartLine, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.CartLine, error)
}

// OrderStore moves orders and their items and answers slot booking
// counts.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order, items []model.OrderItem) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Order, error)
	Items(ctx context.Context, orderID uint64) ([]model.OrderItem, error)
	UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error
	MarkPaid(ctx context.Context, id uint64, at time.Time) error
	CountSlotBookings(ctx context.Context, sellerID uint64, date, start string, lock bool) (int, error)
	ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Order, error)
	ListBySeller(ctx context.Context, sellerID uint64) ([]model.Order, error)
}
