package model

import "time"

// Product is a sellable item together with its stock reservation row.
// TotalQuantity counts owned units and ReservedQuantity counts units
// currently claimed by unexpired cart holds or live orders.  Composed
// products (bouquets) are assembled from raw stock by an external
// collaborator but behave exactly like plain stock-counted products here.
//
// Invariant: 0 <= ReservedQuantity <= TotalQuantity.  Every mutation of
// either counter happens under the product row's exclusive lock.
type Product struct {
	ID               uint64    // products.id
	SellerID         uint64    // products.seller_id
	Name             string    // products.name
	PriceCents       uint32    // products.price_cents
	IsComposed       bool      // products.is_composed
	TotalQuantity    int       // products.total_quantity
	ReservedQuantity int       // products.reserved_quantity
	CreatedAt        time.Time // products.created_at
	UpdatedAt        time.Time // products.updated_at
}

// Available returns how many units can still be reserved.
func (p *Product) Available() int {
	return p.TotalQuantity - p.ReservedQuantity
}
