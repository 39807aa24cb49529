package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irisova/flower-order-reservation/internal/clock"
	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/repository"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) // a Monday

type orderEnv struct {
	store *memStore
	svc   *OrderService
	clk   clock.Clock
}

func newOrderEnv(t *testing.T) *orderEnv {
	t.Helper()
	store := newMemStore()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	clk := clock.NewFixed(testNow)
	svc := NewOrderService(OrderServiceParams{
		Tx:        store,
		Sellers:   store,
		Capacity:  memCapacityStore{store},
		Stock:     memStockStore{store},
		Cart:      memCartStore{store},
		Orders:    memOrderStore{store},
		Pricer:    StaticDeliveryPricer{Prices: map[uint64]uint32{5: 700}},
		Events:    NopPublisher{},
		Clock:     clk,
		Location:  time.UTC,
		ResetHour: 0,
		Log:       log,
	})
	return &orderEnv{store: store, svc: svc, clk: clk}
}

// seedSeller creates a shop with a declared quota for today.
func (e *orderEnv) seedSeller(maxDelivery, maxPickup int) uint64 {
	id := e.store.addSeller(model.Seller{
		OwnerUserID: 100,
		Name:        "Rosehip",
		WorkingHours: model.WeekSchedule{
			"mon": {Open: "09:00", Close: "18:00"},
			"tue": {Open: "09:00", Close: "18:00"},
		},
		SlotDurationMin:   120,
		SlotLeadTimeMin:   0,
		SlotDaysAhead:     7,
		DeliveriesPerSlot: 1,
	})
	e.store.capacity[id] = model.SellerCapacity{
		SellerID:       id,
		Delivery:       model.CounterSet{Max: maxDelivery},
		Pickup:         model.CounterSet{Max: maxPickup},
		DailyLimitDate: model.BusinessDate(testNow, time.UTC, 0),
	}
	return id
}

func TestCreateOrderDirect(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, o.Status)
	assert.NotEmpty(t, o.Number)
	assert.Equal(t, uint32(1500), o.SubtotalCents)

	// The order holds the stock and one pending pickup slot.
	assert.Equal(t, 3, e.store.products[productID].ReservedQuantity)
	assert.Equal(t, 1, e.store.capacity[sellerID].Pickup.Pending)
	assert.Equal(t, 0, e.store.capacity[sellerID].Delivery.Pending)
}

func TestCreateOrderFromCart(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10, ReservedQuantity: 2})
	at := testNow.Add(-time.Minute)
	e.store.cart[1] = model.CartLine{ID: 1, BuyerID: 1, ProductID: productID, Quantity: 2, ReservedAt: &at}
	e.store.nextCartID = 1

	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), o.SubtotalCents)

	// Conversion moves the hold to the order: the counter is unchanged
	// and the cart line is gone.
	assert.Equal(t, 2, e.store.products[productID].ReservedQuantity)
	assert.Empty(t, e.store.cart)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)

	_, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
	})
	assert.ErrorIs(t, err, repository.ErrCartLineNotFound)
}

func TestCreateOrderQuotaNotSetToday(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	// Yesterday's declaration does not carry over.
	cap := e.store.capacity[sellerID]
	cap.DailyLimitDate = model.BusinessDate(testNow.AddDate(0, 0, -1), time.UTC, 0)
	e.store.capacity[sellerID] = cap

	_, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, repository.ErrQuotaNotSetToday)
}

func TestCreateOrderBlockedSeller(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})
	sl := e.store.sellers[sellerID]
	sl.IsBlocked = true
	e.store.sellers[sellerID] = sl

	_, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, repository.ErrSellerBlocked)
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 2})

	_, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 5}},
	})
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	// The failed admission left no trace: no pending slot, no reservation.
	assert.Equal(t, 0, e.store.capacity[sellerID].Pickup.Pending)
	assert.Equal(t, 0, e.store.products[productID].ReservedQuantity)
	assert.Empty(t, e.store.orders)
}

func TestCreateOrderConcurrentQuota(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 1) // one pickup slot
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 100})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.CreateOrder(context.Background(), CreateOrderInput{
				BuyerID:      uint64(i + 1),
				SellerID:     sellerID,
				DeliveryType: model.DeliveryTypePickup,
				Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, repository.ErrQuotaExhausted)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, e.store.capacity[sellerID].Pickup.Pending)
}

func TestCreateOrderConcurrentStock(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(100, 100)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 3})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.CreateOrder(context.Background(), CreateOrderInput{
				BuyerID:      uint64(i + 1),
				SellerID:     sellerID,
				DeliveryType: model.DeliveryTypePickup,
				Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, repository.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 3, won)
	assert.Equal(t, 3, e.store.products[productID].ReservedQuantity)
}

func TestCreateOrderSlotFull(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3) // DeliveriesPerSlot is 1
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	place := func(buyer uint64) error {
		_, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
			BuyerID:      buyer,
			SellerID:     sellerID,
			DeliveryType: model.DeliveryTypeDelivery,
			Slot:         &SlotRequest{Date: "2026-03-03", Start: "11:00"},
			Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
		})
		return err
	}
	require.NoError(t, place(1))
	assert.ErrorIs(t, place(2), repository.ErrSlotFull)

	// A different window still works.
	_, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      3,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypeDelivery,
		Slot:         &SlotRequest{Date: "2026-03-03", Start: "13:00"},
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	assert.NoError(t, err)
}

func TestCreateOrderDeliveryDistrict(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	known := uint64(5)
	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypeDelivery,
		DistrictID:   &known,
		Slot:         &SlotRequest{Date: "2026-03-03", Start: "11:00"},
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(700), o.DeliveryPriceCents)

	unknown := uint64(99)
	_, err = e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      2,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypeDelivery,
		DistrictID:   &unknown,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, repository.ErrUndeliverableDistrict)
	// The failed order consumed nothing.
	assert.Equal(t, 1, e.store.capacity[sellerID].Delivery.Pending)
}

func TestCreateOrderSlotUnavailable(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	_, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypeDelivery,
		// Tuesday is open but 08:00 is before opening.
		Slot:  &SlotRequest{Date: "2026-03-03", Start: "08:00"},
		Lines: []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
}

func TestTransitionLifecycle(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 2}},
	})
	require.NoError(t, err)

	sellerActor := Actor{UserID: 100, Role: model.RoleSeller}
	buyerActor := Actor{UserID: 1, Role: model.RoleBuyer}

	// Accept: pending moves to active.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusAccepted, sellerActor)
	require.NoError(t, err)
	assert.Equal(t, 0, e.store.capacity[sellerID].Pickup.Pending)
	assert.Equal(t, 1, e.store.capacity[sellerID].Pickup.Active)

	// Progress to done: counters untouched.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusReadyForPickup, sellerActor)
	require.NoError(t, err)
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusDone, sellerActor)
	require.NoError(t, err)
	assert.Equal(t, 1, e.store.capacity[sellerID].Pickup.Active)
	assert.Equal(t, 2, e.store.products[productID].ReservedQuantity)

	// Buyer confirms receipt: active slot freed, stock consumed.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusCompleted, buyerActor)
	require.NoError(t, err)
	assert.Equal(t, 0, e.store.capacity[sellerID].Pickup.Active)
	assert.Equal(t, 8, e.store.products[productID].TotalQuantity)
	assert.Equal(t, 0, e.store.products[productID].ReservedQuantity)

	// Terminal: nothing more is allowed.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusCancelled, buyerActor)
	assert.ErrorIs(t, err, repository.ErrInvalidStatusTransition)
}

func TestTransitionCancelReleasesOnce(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 4, e.store.products[productID].ReservedQuantity)

	buyerActor := Actor{UserID: 1, Role: model.RoleBuyer}
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusCancelled, buyerActor)
	require.NoError(t, err)
	assert.Equal(t, 0, e.store.products[productID].ReservedQuantity)
	assert.Equal(t, 0, e.store.capacity[sellerID].Pickup.Pending)

	// A repeated cancellation fails the table check and releases nothing.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusCancelled, buyerActor)
	assert.ErrorIs(t, err, repository.ErrInvalidStatusTransition)
	assert.Equal(t, 0, e.store.products[productID].ReservedQuantity)
}

func TestTransitionReject(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusRejected, Actor{UserID: 100, Role: model.RoleSeller})
	require.NoError(t, err)
	assert.Equal(t, 0, e.store.capacity[sellerID].Pickup.Pending)
}

func TestMarkPaid(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	sellerActor := Actor{UserID: 100, Role: model.RoleSeller}

	// Payment cannot be confirmed while the order is still pending.
	_, err = e.svc.MarkPaid(context.Background(), o.ID, sellerActor)
	assert.ErrorIs(t, err, repository.ErrInvalidStatusTransition)

	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusAccepted, sellerActor)
	require.NoError(t, err)

	// Buyers never confirm payment.
	_, err = e.svc.MarkPaid(context.Background(), o.ID, Actor{UserID: 1, Role: model.RoleBuyer})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	paid, err := e.svc.MarkPaid(context.Background(), o.ID, sellerActor)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, testNow, *paid.PaidAt)
}

func TestTransitionAuthorization(t *testing.T) {
	e := newOrderEnv(t)
	sellerID := e.seedSeller(3, 3)
	productID := e.store.addProduct(model.Product{SellerID: sellerID, PriceCents: 500, TotalQuantity: 10})

	o, err := e.svc.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:      1,
		SellerID:     sellerID,
		DeliveryType: model.DeliveryTypePickup,
		Lines:        []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	// A stranger buyer cannot touch the order.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusCancelled, Actor{UserID: 42, Role: model.RoleBuyer})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// The buyer cannot accept their own order.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusAccepted, Actor{UserID: 1, Role: model.RoleBuyer})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// The seller cannot confirm receipt for the buyer.
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusCompleted, Actor{UserID: 100, Role: model.RoleSeller})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// A seller who does not own the shop is rejected too.
	e.store.addSeller(model.Seller{OwnerUserID: 200, Name: "Tulip & Co"})
	_, err = e.svc.Transition(context.Background(), o.ID, model.StatusAccepted, Actor{UserID: 200, Role: model.RoleSeller})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}
