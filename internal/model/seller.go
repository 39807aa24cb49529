package model

import (
	"encoding/json"
	"time"
)

// Seller is a shop on the marketplace.  Besides identity it carries the
// slot-booking configuration used by the delivery slot allocator: the
// recurring weekday schedule, the fixed window duration, the minimum lead
// time before a window may start, how many days ahead windows are offered
// and how many deliveries fit into a single window.
//
// Fields:
//
//	ID                – primary key identifier.
//	OwnerUserID       – user account that manages this shop.
//	Name              – display name.
//	IsBlocked         – blocked sellers cannot receive new orders.
//	WorkingHours      – per-weekday open/close schedule (may be empty).
//	SlotDurationMin   – delivery window length in minutes (60/90/120/180).
//	SlotLeadTimeMin   – minimum minutes between "now" and a window start.
//	SlotDaysAhead     – look-ahead horizon for offered windows.
//	DeliveriesPerSlot – booking capacity of a single window.
type Seller struct {
	ID                uint64       // sellers.id
	OwnerUserID       uint64       // sellers.owner_user_id
	Name              string       // sellers.name
	IsBlocked         bool         // sellers.is_blocked
	WorkingHours      WeekSchedule // sellers.working_hours (JSON)
	SlotDurationMin   int          // sellers.slot_duration_min
	SlotLeadTimeMin   int          // sellers.slot_lead_time_min
	SlotDaysAhead     int          // sellers.slot_days_ahead
	DeliveriesPerSlot int          // sellers.deliveries_per_slot
	CreatedAt         time.Time    // sellers.created_at
	UpdatedAt         time.Time    // sellers.updated_at
}

// DayHours is one weekday's opening interval.  Clock times use the
// "15:04" layout in the market's local timezone.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WeekSchedule maps lowercase three-letter weekday keys ("mon".."sun") to
// opening hours.  A missing key means the shop is closed that day.
type WeekSchedule map[string]DayHours

// weekdayKeys translates time.Weekday into the schedule's map keys.
var weekdayKeys = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// ForWeekday returns the opening hours for the given weekday and whether
// the shop is open at all that day.  Malformed clock strings are treated
// as closed so a bad schedule row can never produce bookable windows.
func (s WeekSchedule) ForWeekday(d time.Weekday) (open, close time.Duration, ok bool) {
	h, found := s[weekdayKeys[d]]
	if !found {
		return 0, 0, false
	}
	open, err1 := parseClock(h.Open)
	close, err2 := parseClock(h.Close)
	if err1 != nil || err2 != nil || close <= open {
		return 0, 0, false
	}
	return open, close, true
}

// parseClock converts "15:04" into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ParseWeekSchedule decodes the sellers.working_hours JSON column.  An
// empty or NULL column yields an empty schedule (closed every day).
func ParseWeekSchedule(raw []byte) (WeekSchedule, error) {
	if len(raw) == 0 {
		return WeekSchedule{}, nil
	}
	var s WeekSchedule
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}
