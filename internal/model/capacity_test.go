package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBusinessDate(t *testing.T) {
	loc := time.UTC

	// Before the reset hour the previous day's quota still applies.
	at := time.Date(2026, 3, 10, 2, 30, 0, 0, loc)
	assert.Equal(t, "2026-03-09", BusinessDate(at, loc, 3))

	// At and after the reset hour the new business day begins.
	at = time.Date(2026, 3, 10, 3, 0, 0, 0, loc)
	assert.Equal(t, "2026-03-10", BusinessDate(at, loc, 3))

	at = time.Date(2026, 3, 10, 23, 59, 0, 0, loc)
	assert.Equal(t, "2026-03-10", BusinessDate(at, loc, 3))

	// A zero reset hour is plain calendar-date behavior.
	at = time.Date(2026, 3, 10, 0, 0, 1, 0, loc)
	assert.Equal(t, "2026-03-10", BusinessDate(at, loc, 0))
}

func TestForType(t *testing.T) {
	c := SellerCapacity{
		Delivery: CounterSet{Max: 5},
		Pickup:   CounterSet{Max: 9},
	}
	assert.Equal(t, 5, c.ForType(DeliveryTypeDelivery).Max)
	assert.Equal(t, 9, c.ForType(DeliveryTypePickup).Max)

	// Mutations through ForType land on the ledger itself.
	c.ForType(DeliveryTypePickup).Pending++
	assert.Equal(t, 1, c.Pickup.Pending)
}

func TestCartLineIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ttl := 300 * time.Second

	at := now.Add(-299 * time.Second)
	l := CartLine{ReservedAt: &at}
	assert.False(t, l.IsExpired(now, ttl))

	at = now.Add(-301 * time.Second)
	assert.True(t, l.IsExpired(now, ttl))

	// Exactly at the boundary the hold is still valid.
	at = now.Add(-300 * time.Second)
	assert.False(t, l.IsExpired(now, ttl))

	// Pre-order lines have no reservation and never expire.
	l = CartLine{IsPreorder: true}
	assert.False(t, l.IsExpired(now, ttl))
}
