package model

import "time"

// DeliveryType selects which pair of capacity counters an order affects.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Valid reports whether t is one of the two known fulfillment types.
func (t DeliveryType) Valid() bool {
	return t == DeliveryTypeDelivery || t == DeliveryTypePickup
}

// CounterSet groups the three per-type capacity counters.  Keeping the
// delivery and pickup sides behind the same struct means the admission
// logic is written once and indexed by type instead of duplicated.
type CounterSet struct {
	Max     int // seller-declared daily quota
	Active  int // orders in an accepted-or-later, non-terminal state
	Pending int // orders awaiting seller acceptance
}

// SellerCapacity is the per-seller capacity ledger row.  The quota only
// applies while DailyLimitDate equals the current business date; for any
// other date the available capacity is zero until the seller re-declares
// a quota for the new day.
type SellerCapacity struct {
	SellerID       uint64     // seller_capacity.seller_id
	Delivery       CounterSet // *_delivery_* columns
	Pickup         CounterSet // *_pickup_* columns
	DailyLimitDate string     // seller_capacity.daily_limit_date ("2006-01-02", empty when NULL)
}

// ForType returns the counter set that the given fulfillment type maps to.
// Unknown types fall back to delivery; callers validate the type first.
func (c *SellerCapacity) ForType(t DeliveryType) *CounterSet {
	if t == DeliveryTypePickup {
		return &c.Pickup
	}
	return &c.Delivery
}

// BusinessDateLayout is the storage layout of daily_limit_date.
const BusinessDateLayout = "2006-01-02"

// BusinessDate returns the local calendar date that the daily quota
// applies to at the given instant.  The business day does not roll over
// at midnight: it starts at resetHour local time, so an order placed at
// 01:30 with a 03:00 reset still belongs to the previous day's quota.
func BusinessDate(now time.Time, loc *time.Location, resetHour int) string {
	return now.In(loc).Add(-time.Duration(resetHour) * time.Hour).Format(BusinessDateLayout)
}
