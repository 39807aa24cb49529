package model

import "time"

// DefaultReservationTTL is how long a cart hold stays valid without an
// extension before the sweeper may reclaim it.
const DefaultReservationTTL = 300 * time.Second

// CartLine is a buyer's pre-checkout hold on a product.  Adding a product
// to the cart reserves stock at that moment; the hold must be refreshed
// (extension or checkout attempt) before the TTL runs out or the expiry
// sweeper releases the stock and deletes the line.
//
// Pre-order lines carry a NULL ReservedAt: they hold no stock and are
// exempt from the TTL rule.
type CartLine struct {
	ID         uint64     // cart_lines.id
	BuyerID    uint64     // cart_lines.buyer_id
	ProductID  uint64     // cart_lines.product_id
	Quantity   int        // cart_lines.quantity
	IsPreorder bool       // cart_lines.is_preorder
	ReservedAt *time.Time // cart_lines.reserved_at (nullable)
	CreatedAt  time.Time  // cart_lines.created_at
}

// IsExpired reports whether the line's hold has outlived the TTL at the
// given instant.  Lines without an active reservation never expire.
func (l *CartLine) IsExpired(now time.Time, ttl time.Duration) bool {
	if l.ReservedAt == nil {
		return false
	}
	return now.Sub(*l.ReservedAt) > ttl
}
