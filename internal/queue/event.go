// Package queue defines message payloads exchanged over the message
// broker plus the publisher and background consumer that move them.
package queue

// Event names carried in OrderEvent.Name.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published whenever an order is created or changes
// status.  It carries enough information for downstream consumers to
// notify the buyer and seller without querying the primary database.
type OrderEvent struct {
	Name          string `json:"name"`
	OrderID       uint64 `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	BuyerID       uint64 `json:"buyer_id"`
	SellerID      uint64 `json:"seller_id"`
	DeliveryType  string `json:"delivery_type"`
	Status        string `json:"status"`
	PrevStatus    string `json:"prev_status,omitempty"`
	SubtotalCents uint32 `json:"subtotal_cents"`
	SlotDate      string `json:"slot_date,omitempty"`
	SlotStart     string `json:"slot_start,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
