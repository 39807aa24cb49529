package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/queue"
)

// DeliveryPricer resolves a delivery district into a price.  The engine
// only consumes the answer; how prices are derived (zones, distance) is
// a collaborator concern.
type DeliveryPricer interface {
	Resolve(ctx context.Context, sellerID, districtID uint64, subtotalCents uint32) (deliverable bool, priceCents uint32, err error)
}

// BouquetAssembler answers whether a composed product can be assembled
// from raw stock and performs the deduction.  Both calls run inside the
// order-creation transaction and must use the same row-locking
// discipline as the stock store.  A nil assembler means every product is
// treated as plain counted stock.
type BouquetAssembler interface {
	CanAssemble(ctx context.Context, productID uint64, quantity int) (bool, error)
	Deduct(ctx context.Context, productID uint64, quantity int) error
}

// PaymentGateway is the external payment collaborator.  Request fires
// after a successful accept commit, Refund after a cancel commit of a
// paid order.  Failures are logged, never propagated back into the
// already-committed transition.
type PaymentGateway interface {
	Request(ctx context.Context, orderID uint64) error
	Refund(ctx context.Context, orderID uint64) error
}

// EventPublisher delivers order events to interested consumers.  The
// production implementation publishes to RabbitMQ; failures must not
// break the request flow.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.OrderEvent) error
}

// StaticDeliveryPricer resolves districts against a fixed price table.
// Districts absent from the table are not deliverable.
type StaticDeliveryPricer struct {
	Prices map[uint64]uint32 // districtID -> price in cents
}

// Resolve implements DeliveryPricer.
func (p StaticDeliveryPricer) Resolve(_ context.Context, _, districtID uint64, _ uint32) (bool, uint32, error) {
	price, ok := p.Prices[districtID]
	return ok, price, nil
}

// LogPaymentGateway is a stand-in gateway that only records the request.
// It keeps the engine runnable while the real payment integration lives
// elsewhere.
type LogPaymentGateway struct {
	Log *logrus.Logger
}

// Request implements PaymentGateway.
func (g LogPaymentGateway) Request(_ context.Context, orderID uint64) error {
	g.Log.WithField("order_id", orderID).Info("payment requested")
	return nil
}

// Refund implements PaymentGateway.
func (g LogPaymentGateway) Refund(_ context.Context, orderID uint64) error {
	g.Log.WithField("order_id", orderID).Info("payment refunded")
	return nil
}

// NopPublisher drops events.  Used when the broker is not configured.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, queue.OrderEvent) error { return nil }
