package service

import (
	"context"
	"fmt"
	"time"

	"github.com/irisova/flower-order-reservation/internal/clock"
	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/repository"
)

// SellerService handles seller onboarding and the daily capacity ledger.
type SellerService struct {
	tx        TxRunner
	sellers   SellerStore
	capacity  CapacityStore
	stock     StockStore
	clk       clock.Clock
	loc       *time.Location
	resetHour int
}

// NewSellerService wires a SellerService.
func NewSellerService(tx TxRunner, sellers SellerStore, capacity CapacityStore, stock StockStore, clk clock.Clock, loc *time.Location, resetHour int) *SellerService {
	if loc == nil {
		loc = time.UTC
	}
	return &SellerService{tx: tx, sellers: sellers, capacity: capacity, stock: stock, clk: clk, loc: loc, resetHour: resetHour}
}

// CreateSeller registers a shop and its empty capacity ledger in one
// transaction.  The ledger starts with no declared quota: the seller is
// invisible to order admission until the first DeclareDailyQuota.
func (s *SellerService) CreateSeller(ctx context.Context, seller *model.Seller) error {
	if seller.SlotDurationMin <= 0 {
		seller.SlotDurationMin = 60
	}
	if seller.SlotDaysAhead <= 0 {
		seller.SlotDaysAhead = 7
	}
	if seller.DeliveriesPerSlot <= 0 {
		seller.DeliveriesPerSlot = 1
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.sellers.Create(ctx, seller); err != nil {
			return err
		}
		return s.capacity.Create(ctx, seller.ID)
	})
}

// DeclareDailyQuota sets the seller's order limits for the current
// business day.  Only the maxima and the validity date change; active
// and pending counters survive the declaration, so orders admitted
// before the (late) declaration still count against the new limits.
func (s *SellerService) DeclareDailyQuota(ctx context.Context, sellerID uint64, maxDelivery, maxPickup int) (*model.SellerCapacity, error) {
	if maxDelivery < 0 || maxPickup < 0 {
		return nil, fmt.Errorf("negative quota")
	}
	var cap *model.SellerCapacity
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.capacity.GetForUpdate(ctx, sellerID)
		if err != nil {
			return err
		}
		c.Delivery.Max = maxDelivery
		c.Pickup.Max = maxPickup
		c.DailyLimitDate = model.BusinessDate(s.clk.Now(), s.loc, s.resetHour)
		if err := s.capacity.Save(ctx, c); err != nil {
			return err
		}
		cap = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cap, nil
}

// Capacity returns the seller's current ledger together with whether the
// quota is valid for the current business day.
func (s *SellerService) Capacity(ctx context.Context, sellerID uint64) (*model.SellerCapacity, bool, error) {
	c, err := s.capacity.Get(ctx, sellerID)
	if err != nil {
		return nil, false, err
	}
	today := model.BusinessDate(s.clk.Now(), s.loc, s.resetHour)
	return c, c.DailyLimitDate == today, nil
}

// GetSeller loads a shop by id.
func (s *SellerService) GetSeller(ctx context.Context, sellerID uint64) (*model.Seller, error) {
	return s.sellers.GetByID(ctx, sellerID)
}

// GetSellerByOwner loads the shop owned by a user account.
func (s *SellerService) GetSellerByOwner(ctx context.Context, ownerUserID uint64) (*model.Seller, error) {
	return s.sellers.GetByOwner(ctx, ownerUserID)
}

// CreateProduct registers a product with its initial stock.
func (s *SellerService) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.TotalQuantity < 0 {
		return fmt.Errorf("negative stock")
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.stock.Create(ctx, p)
	})
}

// Restock adjusts a product's total stock.  The new total may not drop
// below what is currently reserved, and only the owning seller may call.
func (s *SellerService) Restock(ctx context.Context, sellerID, productID uint64, newTotal int) (*model.Product, error) {
	var out *model.Product
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.stock.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.SellerID != sellerID {
			return repository.ErrForbidden
		}
		if newTotal < p.ReservedQuantity {
			return fmt.Errorf("total %d below reserved %d", newTotal, p.ReservedQuantity)
		}
		p.TotalQuantity = newTotal
		if err := s.stock.SaveQuantities(ctx, p.ID, p.TotalQuantity, p.ReservedQuantity); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
