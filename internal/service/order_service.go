package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/clock"
	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/queue"
	"github.com/irisova/flower-order-reservation/internal/repository"
)

// Actor identifies who is requesting an order operation.  Role matches
// the JWT role claim; ownership is verified against the order.
type Actor struct {
	UserID uint64
	Role   string
}

// OrderLineInput is one requested product line for a direct order.
type OrderLineInput struct {
	ProductID uint64
	Quantity  int
}

// SlotRequest selects a delivery window by its (date, start) key.
type SlotRequest struct {
	Date  string
	Start string
}

// CreateOrderInput carries everything needed to admit a new order.  An
// empty Lines slice means checkout: the buyer's cart lines for the
// seller are converted into committed order lines without a new
// reservation.
type CreateOrderInput struct {
	BuyerID      uint64
	SellerID     uint64
	DeliveryType model.DeliveryType
	DistrictID   *uint64
	Slot         *SlotRequest
	Lines        []OrderLineInput
}

// OrderServiceParams bundles the dependencies of NewOrderService.
type OrderServiceParams struct {
	Tx        TxRunner
	Sellers   SellerStore
	Capacity  CapacityStore
	Stock     StockStore
	Cart      CartStore
	Orders    OrderStore
	Pricer    DeliveryPricer
	Assembler BouquetAssembler
	Payments  PaymentGateway
	Events    EventPublisher
	Clock     clock.Clock
	Location  *time.Location
	ResetHour int
	Log       *logrus.Logger
}

// OrderService is the order state machine: the single orchestrator of
// the capacity ledger, the stock reservation store and the slot
// allocator.  Creation and every status transition run inside one
// storage transaction; on any failure all prior mutations of the same
// operation roll back, so a rejected admission never leaves a capacity
// slot consumed or stock held.
//
// Lock ordering inside a transaction is fixed: seller capacity row,
// then product rows sorted by id, then the slot count. Concurrent
// creations touching overlapping resources cannot deadlock.
type OrderService struct {
	tx        TxRunner
	sellers   SellerStore
	capacity  CapacityStore
	stock     StockStore
	cart      CartStore
	orders    OrderStore
	pricer    DeliveryPricer
	assembler BouquetAssembler
	payments  PaymentGateway
	events    EventPublisher
	clk       clock.Clock
	loc       *time.Location
	resetHour int
	log       *logrus.Logger
}

// NewOrderService wires an OrderService.  Pricer, Assembler, Payments
// and Events may be nil; the engine then skips the corresponding
// collaborator call.
func NewOrderService(p OrderServiceParams) *OrderService {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	log := p.Log
	if log == nil {
		log = logrus.New()
	}
	return &OrderService{
		tx:        p.Tx,
		sellers:   p.Sellers,
		capacity:  p.Capacity,
		stock:     p.Stock,
		cart:      p.Cart,
		orders:    p.Orders,
		pricer:    p.Pricer,
		assembler: p.Assembler,
		payments:  p.Payments,
		events:    p.Events,
		clk:       p.Clock,
		loc:       loc,
		resetHour: p.ResetHour,
		log:       log,
	}
}

// resolvedLine is one order line after product lookup, before locking.
type resolvedLine struct {
	product  *model.Product
	quantity int
	preorder bool
	cartLine *model.CartLine // non-nil when converted from the cart
}

// CreateOrder admits a new order.  Inside a single transaction it checks
// and reserves a seller capacity slot, validates (or freshly reserves)
// stock for every line, optionally validates the requested delivery
// window, and creates the order in pending status.  Converted cart lines
// are deleted without releasing their reservation, so the units move from
// "held by a cart" to "held by an order".  On any failure nothing is
// applied.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if !in.DeliveryType.Valid() {
		return nil, fmt.Errorf("unknown delivery type %q", in.DeliveryType)
	}
	var created *model.Order
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		seller, err := s.sellers.GetByID(ctx, in.SellerID)
		if err != nil {
			return err
		}
		if seller.IsBlocked {
			return repository.ErrSellerBlocked
		}

		now := s.clk.Now()

		// Capacity admission first: the seller row lock is the outermost
		// lock of every order operation.
		cap, err := s.capacity.GetForUpdate(ctx, in.SellerID)
		if err != nil {
			return err
		}
		today := model.BusinessDate(now, s.loc, s.resetHour)
		if cap.DailyLimitDate != today {
			return repository.ErrQuotaNotSetToday
		}
		cs := cap.ForType(in.DeliveryType)
		if cs.Pending+cs.Active >= cs.Max {
			return repository.ErrQuotaExhausted
		}
		cs.Pending++
		if err := s.capacity.Save(ctx, cap); err != nil {
			return err
		}

		lines, err := s.resolveLines(ctx, in)
		if err != nil {
			return err
		}

		// Product rows are locked in ascending id order.
		sort.Slice(lines, func(i, j int) bool { return lines[i].product.ID < lines[j].product.ID })
		fromCart := len(in.Lines) == 0
		for i := range lines {
			if err := s.secureLineStock(ctx, in.BuyerID, &lines[i], fromCart); err != nil {
				return err
			}
		}

		var subtotal uint32
		for i := range lines {
			subtotal += uint32(lines[i].quantity) * lines[i].product.PriceCents
		}

		var deliveryPrice uint32
		if in.DeliveryType == model.DeliveryTypeDelivery && in.DistrictID != nil && s.pricer != nil {
			deliverable, price, err := s.pricer.Resolve(ctx, seller.ID, *in.DistrictID, subtotal)
			if err != nil {
				return err
			}
			if !deliverable {
				return repository.ErrUndeliverableDistrict
			}
			deliveryPrice = price
		}

		o := &model.Order{
			Number:             uuid.NewString(),
			BuyerID:            in.BuyerID,
			SellerID:           in.SellerID,
			Status:             model.StatusPending,
			DeliveryType:       in.DeliveryType,
			DistrictID:         in.DistrictID,
			DeliveryPriceCents: deliveryPrice,
			SubtotalCents:      subtotal,
		}

		if in.DeliveryType == model.DeliveryTypeDelivery && in.Slot != nil {
			w, ok := windowAt(seller, in.Slot.Date, in.Slot.Start, now, s.loc)
			if !ok {
				return repository.ErrSlotUnavailable
			}
			// Re-count under lock right before committing against the
			// window; listing may have shown a stale count.
			booked, err := s.orders.CountSlotBookings(ctx, seller.ID, w.Date, w.Start, true)
			if err != nil {
				return err
			}
			if booked >= seller.DeliveriesPerSlot {
				return repository.ErrSlotFull
			}
			o.SlotDate, o.SlotStart, o.SlotEnd = w.Date, w.Start, w.End
		}

		items := make([]model.OrderItem, 0, len(lines))
		for i := range lines {
			items = append(items, model.OrderItem{
				ProductID:  lines[i].product.ID,
				Quantity:   lines[i].quantity,
				PriceCents: lines[i].product.PriceCents,
				IsPreorder: lines[i].preorder,
			})
		}
		if err := s.orders.Create(ctx, o, items); err != nil {
			return err
		}
		for i := range lines {
			if lines[i].cartLine != nil {
				if err := s.cart.DeleteByID(ctx, lines[i].cartLine.ID); err != nil {
					return err
				}
			}
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventOrderCreated, created, "")
	return created, nil
}

// resolveLines turns the input into concrete product lines.  Checkout
// orders take every cart line whose product belongs to the seller;
// direct orders take the explicit lines.  Products are pre-read without
// locking here, then re-read authoritatively under lock.
func (s *OrderService) resolveLines(ctx context.Context, in CreateOrderInput) ([]resolvedLine, error) {
	if len(in.Lines) == 0 {
		cartLines, err := s.cart.ListByBuyer(ctx, in.BuyerID)
		if err != nil {
			return nil, err
		}
		var lines []resolvedLine
		for i := range cartLines {
			cl := cartLines[i]
			p, err := s.stock.Get(ctx, cl.ProductID)
			if err != nil {
				return nil, err
			}
			if p.SellerID != in.SellerID {
				continue
			}
			lines = append(lines, resolvedLine{product: p, quantity: cl.Quantity, preorder: cl.IsPreorder, cartLine: &cl})
		}
		if len(lines) == 0 {
			return nil, repository.ErrCartLineNotFound
		}
		return lines, nil
	}
	lines := make([]resolvedLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %d", l.Quantity, l.ProductID)
		}
		p, err := s.stock.Get(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if p.SellerID != in.SellerID {
			return nil, repository.ErrProductNotFound
		}
		lines = append(lines, resolvedLine{product: p, quantity: l.Quantity})
	}
	return lines, nil
}

// secureLineStock makes sure one line's units are held by this order
// when the transaction commits.  Cart-sourced lines whose hold row still
// exists are already counted inside reserved_quantity and convert as-is;
// a line the sweeper reclaimed in the meantime (or a direct order line)
// needs a fresh reservation under the product row lock.
func (s *OrderService) secureLineStock(ctx context.Context, buyerID uint64, line *resolvedLine, fromCart bool) error {
	p, err := s.stock.GetForUpdate(ctx, line.product.ID)
	if err != nil {
		return err
	}
	line.product = p

	if !line.preorder {
		held := 0
		if fromCart {
			cl, err := s.cart.GetForUpdate(ctx, buyerID, p.ID)
			switch {
			case err == nil:
				held = cl.Quantity
				line.quantity = cl.Quantity
				line.cartLine = cl
			case errors.Is(err, repository.ErrCartLineNotFound):
				// Sweeper won the race and released the hold.
				line.cartLine = nil
			default:
				return err
			}
		}
		if held == 0 {
			if p.Available() < line.quantity {
				return repository.ErrInsufficientStock
			}
			p.ReservedQuantity += line.quantity
			if err := s.stock.SaveQuantities(ctx, p.ID, p.TotalQuantity, p.ReservedQuantity); err != nil {
				return err
			}
		}
	}

	if p.IsComposed && s.assembler != nil {
		ok, err := s.assembler.CanAssemble(ctx, p.ID, line.quantity)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrInsufficientStock
		}
		if err := s.assembler.Deduct(ctx, p.ID, line.quantity); err != nil {
			return err
		}
	}
	return nil
}

// Transition moves an order to the target status, applying the capacity
// and stock side effects the lifecycle table prescribes.  The order row
// is locked first so concurrent transitions of the same order serialize;
// a repeat of an already-applied transition then fails the table check
// and touches nothing, which is what makes the side effects exactly-once.
func (s *OrderService) Transition(ctx context.Context, orderID uint64, target model.OrderStatus, actor Actor) (*model.Order, error) {
	if !target.Valid() || target == model.StatusPending {
		return nil, repository.ErrInvalidStatusTransition
	}
	var updated *model.Order
	var prev model.OrderStatus
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, o, target, actor); err != nil {
			return err
		}
		if !model.CanTransition(o.Status, target) {
			return repository.ErrInvalidStatusTransition
		}
		prev = o.Status
		if err := s.applyTransitionEffects(ctx, o, target); err != nil {
			return err
		}
		if err := s.orders.UpdateStatus(ctx, o.ID, target); err != nil {
			return err
		}
		o.Status = target
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch target {
	case model.StatusAccepted:
		if s.payments != nil {
			if err := s.payments.Request(ctx, updated.ID); err != nil {
				s.log.WithError(err).WithField("order_id", updated.ID).Warn("payment request failed")
			}
		}
	case model.StatusCancelled:
		if s.payments != nil && updated.PaidAt != nil {
			if err := s.payments.Refund(ctx, updated.ID); err != nil {
				s.log.WithError(err).WithField("order_id", updated.ID).Warn("payment refund failed")
			}
		}
	}
	s.publish(ctx, queue.EventOrderStatusChanged, updated, prev)
	return updated, nil
}

// authorize checks that the actor may request this transition.  Buyers
// cancel or confirm receipt of their own orders; sellers manage the rest
// of the lifecycle of orders against their own shop.
func (s *OrderService) authorize(ctx context.Context, o *model.Order, target model.OrderStatus, actor Actor) error {
	switch actor.Role {
	case model.RoleBuyer:
		if o.BuyerID != actor.UserID {
			return repository.ErrForbidden
		}
		if target != model.StatusCancelled && target != model.StatusCompleted {
			return repository.ErrForbidden
		}
	case model.RoleSeller:
		seller, err := s.sellers.GetByOwner(ctx, actor.UserID)
		if err != nil {
			return repository.ErrForbidden
		}
		if seller.ID != o.SellerID {
			return repository.ErrForbidden
		}
		if target == model.StatusCompleted {
			// Only the buyer confirms receipt.
			return repository.ErrForbidden
		}
	default:
		return repository.ErrForbidden
	}
	return nil
}

// applyTransitionEffects adjusts the capacity ledger and the stock
// reservation store for one transition.  The seller row is locked before
// any product row, matching the creation path's lock order.
func (s *OrderService) applyTransitionEffects(ctx context.Context, o *model.Order, target model.OrderStatus) error {
	switch target {
	case model.StatusAccepted:
		return s.adjustCapacity(ctx, o, func(cs *model.CounterSet) {
			cs.Pending = s.clampSub(cs.Pending, 1, "pending", o.SellerID)
			cs.Active++
		})
	case model.StatusRejected:
		return s.adjustCapacity(ctx, o, func(cs *model.CounterSet) {
			cs.Pending = s.clampSub(cs.Pending, 1, "pending", o.SellerID)
		})
	case model.StatusCancelled:
		wasPending := o.Status == model.StatusPending
		if err := s.adjustCapacity(ctx, o, func(cs *model.CounterSet) {
			if wasPending {
				cs.Pending = s.clampSub(cs.Pending, 1, "pending", o.SellerID)
			} else {
				cs.Active = s.clampSub(cs.Active, 1, "active", o.SellerID)
			}
		}); err != nil {
			return err
		}
		return s.releaseOrderStock(ctx, o)
	case model.StatusCompleted:
		if err := s.adjustCapacity(ctx, o, func(cs *model.CounterSet) {
			cs.Active = s.clampSub(cs.Active, 1, "active", o.SellerID)
		}); err != nil {
			return err
		}
		return s.consumeOrderStock(ctx, o)
	default:
		// Fulfillment progression (assembling, in_transit,
		// ready_for_pickup, done) moves no counters.
		return nil
	}
}

func (s *OrderService) adjustCapacity(ctx context.Context, o *model.Order, mutate func(*model.CounterSet)) error {
	cap, err := s.capacity.GetForUpdate(ctx, o.SellerID)
	if err != nil {
		return err
	}
	mutate(cap.ForType(o.DeliveryType))
	return s.capacity.Save(ctx, cap)
}

// releaseOrderStock returns a cancelled order's non-preorder units to
// the sellable pool.
func (s *OrderService) releaseOrderStock(ctx context.Context, o *model.Order) error {
	return s.eachItemLocked(ctx, o, func(p *model.Product, qty int) {
		p.ReservedQuantity = s.clampSub(p.ReservedQuantity, qty, "reserved", p.ID)
	})
}

// consumeOrderStock removes a completed order's non-preorder units from
// stock entirely: the flowers left the shop.
func (s *OrderService) consumeOrderStock(ctx context.Context, o *model.Order) error {
	return s.eachItemLocked(ctx, o, func(p *model.Product, qty int) {
		p.TotalQuantity = s.clampSub(p.TotalQuantity, qty, "total", p.ID)
		p.ReservedQuantity = s.clampSub(p.ReservedQuantity, qty, "reserved", p.ID)
	})
}

func (s *OrderService) eachItemLocked(ctx context.Context, o *model.Order, mutate func(p *model.Product, qty int)) error {
	items, err := s.orders.Items(ctx, o.ID)
	if err != nil {
		return err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	for _, it := range items {
		if it.IsPreorder {
			continue
		}
		p, err := s.stock.GetForUpdate(ctx, it.ProductID)
		if err != nil {
			return err
		}
		mutate(p, it.Quantity)
		if err := s.stock.SaveQuantities(ctx, p.ID, p.TotalQuantity, p.ReservedQuantity); err != nil {
			return err
		}
	}
	return nil
}

// clampSub subtracts b from a, flooring at zero.  Under a correct
// sequence of operations the result never goes negative; when it would,
// the drift is logged as an anomaly and clamped instead of crashing the
// transaction.
func (s *OrderService) clampSub(a, b int, counter string, id uint64) int {
	if a < b {
		s.log.WithFields(logrus.Fields{
			"counter": counter,
			"id":      id,
			"value":   a,
			"delta":   b,
		}).Warn("counter drift clamped to zero")
		return 0
	}
	return a - b
}

func (s *OrderService) publish(ctx context.Context, name string, o *model.Order, prev model.OrderStatus) {
	if s.events == nil || o == nil {
		return
	}
	ev := queue.OrderEvent{
		Name:          name,
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		DeliveryType:  string(o.DeliveryType),
		Status:        string(o.Status),
		PrevStatus:    string(prev),
		SubtotalCents: o.SubtotalCents,
		SlotDate:      o.SlotDate,
		SlotStart:     o.SlotStart,
		OccurredAt:    s.clk.Now().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("order event publish failed")
	}
}

// MarkPaid records payment confirmation against an order.  Only the
// seller may confirm, and only once the order left pending; the stamp
// is what later entitles a cancelled order to a refund.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uint64, actor Actor) (*model.Order, error) {
	if actor.Role != model.RoleSeller {
		return nil, repository.ErrForbidden
	}
	var updated *model.Order
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		seller, err := s.sellers.GetByOwner(ctx, actor.UserID)
		if err != nil || seller.ID != o.SellerID {
			return repository.ErrForbidden
		}
		if o.Status == model.StatusPending || o.Status.IsTerminal() {
			return repository.ErrInvalidStatusTransition
		}
		now := s.clk.Now()
		if err := s.orders.MarkPaid(ctx, o.ID, now); err != nil {
			return err
		}
		o.PaidAt = &now
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetOrder loads an order with its items for a buyer or seller who owns
// one side of it.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint64, actor Actor) (*model.Order, []model.OrderItem, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	switch actor.Role {
	case model.RoleBuyer:
		if o.BuyerID != actor.UserID {
			return nil, nil, repository.ErrForbidden
		}
	case model.RoleSeller:
		seller, err := s.sellers.GetByOwner(ctx, actor.UserID)
		if err != nil || seller.ID != o.SellerID {
			return nil, nil, repository.ErrForbidden
		}
	default:
		return nil, nil, repository.ErrForbidden
	}
	items, err := s.orders.Items(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

// ListBuyerOrders returns a buyer's orders, newest first.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

// ListSellerOrders returns the orders of the seller owned by the given
// user account.
func (s *OrderService) ListSellerOrders(ctx context.Context, ownerUserID uint64) ([]model.Order, error) {
	seller, err := s.sellers.GetByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	return s.orders.ListBySeller(ctx, seller.ID)
}
