package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/clock"
	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/repository"
)

// CartService manages pre-checkout stock holds.  Every mutation locks
// the product row first and the cart line second, the same order the
// sweeper and checkout use, so concurrent reserve/extend/sweep runs
// serialize on the product.
type CartService struct {
	tx    TxRunner
	stock StockStore
	cart  CartStore
	clk   clock.Clock
	ttl   time.Duration
	log   *logrus.Logger
}

// NewCartService wires a CartService.  A non-positive ttl falls back to
// the default reservation TTL.
func NewCartService(tx TxRunner, stock StockStore, cart CartStore, clk clock.Clock, ttl time.Duration, log *logrus.Logger) *CartService {
	if ttl <= 0 {
		ttl = model.DefaultReservationTTL
	}
	if log == nil {
		log = logrus.New()
	}
	return &CartService{tx: tx, stock: stock, cart: cart, clk: clk, ttl: ttl, log: log}
}

// TTL returns the reservation lifetime the service enforces.
func (s *CartService) TTL() time.Duration { return s.ttl }

// ReserveLine puts (or re-puts) a product into the buyer's cart with the
// given quantity and a fresh reservation timestamp.  A repeated call for
// the same product replaces the previous hold: the stock counter moves by
// the delta, not by the full quantity again.  Pre-order lines hold no
// stock and carry no timestamp.
func (s *CartService) ReserveLine(ctx context.Context, buyerID, productID uint64, quantity int, preorder bool) (*model.CartLine, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %d", quantity)
	}
	var line *model.CartLine
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.stock.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		prevHeld := 0
		if prev, err := s.cart.GetForUpdate(ctx, buyerID, productID); err == nil {
			if !prev.IsPreorder {
				prevHeld = prev.Quantity
			}
		} else if err != repository.ErrCartLineNotFound {
			return err
		}

		now := s.clk.Now()
		l := &model.CartLine{
			BuyerID:    buyerID,
			ProductID:  productID,
			Quantity:   quantity,
			IsPreorder: preorder,
		}
		if preorder {
			// Switching an existing stock hold to pre-order releases it.
			if prevHeld > 0 {
				p.ReservedQuantity = clampReserved(p.ReservedQuantity, prevHeld, p.ID, s.log)
				if err := s.stock.SaveQuantities(ctx, p.ID, p.TotalQuantity, p.ReservedQuantity); err != nil {
					return err
				}
			}
		} else {
			if p.Available()+prevHeld < quantity {
				return repository.ErrInsufficientStock
			}
			p.ReservedQuantity = p.ReservedQuantity - prevHeld + quantity
			if err := s.stock.SaveQuantities(ctx, p.ID, p.TotalQuantity, p.ReservedQuantity); err != nil {
				return err
			}
			l.ReservedAt = &now
		}
		if err := s.cart.Upsert(ctx, l); err != nil {
			return err
		}
		line = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ExtendLine refreshes the hold's timestamp, restarting the TTL.  If the
// sweeper already reclaimed the line there is nothing left to extend and
// the buyer has to reserve again.
func (s *CartService) ExtendLine(ctx context.Context, buyerID, productID uint64) (*model.CartLine, error) {
	var line *model.CartLine
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.stock.GetForUpdate(ctx, productID); err != nil {
			return err
		}
		l, err := s.cart.GetForUpdate(ctx, buyerID, productID)
		if err != nil {
			return err
		}
		if !l.IsPreorder {
			now := s.clk.Now()
			l.ReservedAt = &now
			if err := s.cart.Upsert(ctx, l); err != nil {
				return err
			}
		}
		line = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ReleaseLine drops the line and returns its held units to the sellable
// pool.  Releasing a line that no longer exists reports not found; the
// sweeper may simply have gotten there first.
func (s *CartService) ReleaseLine(ctx context.Context, buyerID, productID uint64) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.stock.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		l, err := s.cart.GetForUpdate(ctx, buyerID, productID)
		if err != nil {
			return err
		}
		if !l.IsPreorder {
			p.ReservedQuantity = clampReserved(p.ReservedQuantity, l.Quantity, p.ID, s.log)
			if err := s.stock.SaveQuantities(ctx, p.ID, p.TotalQuantity, p.ReservedQuantity); err != nil {
				return err
			}
		}
		return s.cart.DeleteByID(ctx, l.ID)
	})
}

// ListLines returns the buyer's cart annotated with nothing extra; the
// caller decides how to render expiry.
func (s *CartService) ListLines(ctx context.Context, buyerID uint64) ([]model.CartLine, error) {
	return s.cart.ListByBuyer(ctx, buyerID)
}

func clampReserved(reserved, qty int, productID uint64, log *logrus.Logger) int {
	if reserved < qty {
		log.WithFields(logrus.Fields{
			"product_id": productID,
			"reserved":   reserved,
			"release":    qty,
		}).Warn("reserved counter drift clamped to zero")
		return 0
	}
	return reserved - qty
}
