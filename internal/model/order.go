package model

import "time"

// Order ties the seller capacity ledger, the stock reservation store and
// the delivery slot allocator together.  It is created in StatusPending
// and moves through the transition table in order_status.go; each
// transition triggers the matching counter adjustments.
//
// Slot fields are set only for delivery orders booked into a window.
type Order struct {
	ID                 uint64       // orders.id
	Number             string       // orders.number (UUID shown to users)
	BuyerID            uint64       // orders.buyer_id
	SellerID           uint64       // orders.seller_id
	Status             OrderStatus  // orders.status
	DeliveryType       DeliveryType // orders.delivery_type
	DistrictID         *uint64      // orders.district_id (nullable, delivery only)
	DeliveryPriceCents uint32       // orders.delivery_price_cents
	SubtotalCents      uint32       // orders.subtotal_cents
	SlotDate           string       // orders.slot_date ("2006-01-02", empty when NULL)
	SlotStart          string       // orders.slot_start ("15:04", empty when NULL)
	SlotEnd            string       // orders.slot_end ("15:04", empty when NULL)
	PaidAt             *time.Time   // orders.paid_at (nullable)
	CreatedAt          time.Time    // orders.created_at
	UpdatedAt          time.Time    // orders.updated_at
}

// OrderItem is one committed product line of an order.  Non-preorder
// items keep their units inside products.reserved_quantity for the life
// of the order; cancellation releases them, completion consumes them.
type OrderItem struct {
	ID         uint64 // order_items.id
	OrderID    uint64 // order_items.order_id
	ProductID  uint64 // order_items.product_id
	Quantity   int    // order_items.quantity
	PriceCents uint32 // order_items.price_cents
	IsPreorder bool   // order_items.is_preorder
}
