package service

import (
	"fmt"
	"time"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// Window is one candidate delivery window.  Windows are derived from the
// seller's schedule on demand and never persisted; an order references a
// window by its (date, start) key.
type Window struct {
	Date  string `json:"date"`  // "2006-01-02" in the market timezone
	Start string `json:"start"` // "15:04"
	End   string `json:"end"`   // "15:04"
}

// dayWindows generates all candidate windows of one calendar day for a
// seller.  The rules:
//
//  1. A missing or malformed weekday entry means closed: no windows.
//  2. The earliest permissible start is open + lead time; on the current
//     day the wall clock plus lead time applies too, so a window that has
//     effectively already begun is never offered.
//  3. The earliest start is snapped up to the next multiple of the slot
//     duration measured from open, keeping every seller's windows on a
//     fixed grid.
//  4. Consecutive windows are emitted until one would end past close.
func dayWindows(seller *model.Seller, date time.Time, now time.Time, loc *time.Location) []Window {
	open, close, ok := seller.WorkingHours.ForWeekday(date.Weekday())
	if !ok {
		return nil
	}
	dur := time.Duration(seller.SlotDurationMin) * time.Minute
	if dur <= 0 {
		return nil
	}
	lead := time.Duration(seller.SlotLeadTimeMin) * time.Minute

	earliest := open + lead
	localNow := now.In(loc)
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	if localNow.Year() == date.Year() && localNow.YearDay() == date.YearDay() {
		sinceMidnight := localNow.Sub(dayStart) + lead
		if sinceMidnight > earliest {
			earliest = sinceMidnight
		}
	}

	// Snap up to the duration grid anchored at open.
	offset := earliest - open
	steps := offset / dur
	if offset%dur != 0 {
		steps++
	}
	start := open + steps*dur

	var windows []Window
	dateStr := date.Format(model.BusinessDateLayout)
	for start+dur <= close {
		windows = append(windows, Window{
			Date:  dateStr,
			Start: clockString(start),
			End:   clockString(start + dur),
		})
		start += dur
	}
	return windows
}

// windowAt re-derives the candidate set for a requested (date, start)
// and returns the matching window.  It enforces the same boundaries the
// listing applies: dates before today and dates past the seller's
// look-ahead horizon are not bookable.
func windowAt(seller *model.Seller, dateStr, startStr string, now time.Time, loc *time.Location) (Window, bool) {
	date, err := time.ParseInLocation(model.BusinessDateLayout, dateStr, loc)
	if err != nil {
		return Window{}, false
	}
	localNow := now.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
	if date.Before(today) {
		return Window{}, false
	}
	horizon := seller.SlotDaysAhead
	if horizon <= 0 {
		horizon = 1
	}
	if date.After(today.AddDate(0, 0, horizon-1)) {
		return Window{}, false
	}
	for _, w := range dayWindows(seller, date, now, loc) {
		if w.Start == startStr {
			return w, true
		}
	}
	return Window{}, false
}

func clockString(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}
