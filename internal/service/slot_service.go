package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/clock"
)

// slotCacheTTL bounds how stale a cached window listing may be.  Short
// on purpose: remaining capacity changes with every accepted order.
const slotCacheTTL = 15 * time.Second

// SlotWindow is one offered delivery window with its remaining booking
// capacity.
type SlotWindow struct {
	Window
	Remaining int `json:"remaining"`
}

// SlotService lists bookable delivery windows for a seller.  The
// authoritative slot check happens inside order creation; listings here
// are advisory and may be served from a short-lived Redis cache.
type SlotService struct {
	sellers SellerStore
	orders  OrderStore
	cache   *redis.Client
	clk     clock.Clock
	loc     *time.Location
	log     *logrus.Logger
}

// NewSlotService wires a SlotService.  cache may be nil; listings then
// always hit the database.
func NewSlotService(sellers SellerStore, orders OrderStore, cache *redis.Client, clk clock.Clock, loc *time.Location, log *logrus.Logger) *SlotService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.New()
	}
	return &SlotService{sellers: sellers, orders: orders, cache: cache, clk: clk, loc: loc, log: log}
}

// ListWindows returns the seller's open windows for the next `days`
// days, capped at the seller's own look-ahead horizon.  Full windows are
// included with Remaining == 0 so clients can render them as sold out.
func (s *SlotService) ListWindows(ctx context.Context, sellerID uint64, days int) ([]SlotWindow, error) {
	seller, err := s.sellers.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if days <= 0 || days > seller.SlotDaysAhead {
		days = seller.SlotDaysAhead
	}

	key := fmt.Sprintf("slots:%d:%d", sellerID, days)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var cached []SlotWindow
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}

	now := s.clk.Now()
	today := now.In(s.loc)
	var out []SlotWindow
	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d)
		for _, w := range dayWindows(seller, date, now, s.loc) {
			booked, err := s.orders.CountSlotBookings(ctx, sellerID, w.Date, w.Start, false)
			if err != nil {
				return nil, err
			}
			remaining := seller.DeliveriesPerSlot - booked
			if remaining < 0 {
				remaining = 0
			}
			out = append(out, SlotWindow{Window: w, Remaining: remaining})
		}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, key, raw, slotCacheTTL).Err(); err != nil {
				s.log.WithError(err).Debug("slot cache write failed")
			}
		}
	}
	return out, nil
}

// WindowAt validates that (date, start) names a currently offerable
// window for the seller and returns it.
func (s *SlotService) WindowAt(ctx context.Context, sellerID uint64, date, start string) (Window, bool, error) {
	seller, err := s.sellers.GetByID(ctx, sellerID)
	if err != nil {
		return Window{}, false, err
	}
	w, ok := windowAt(seller, date, start, s.clk.Now(), s.loc)
	return w, ok, nil
}
