package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irisova/flower-order-reservation/internal/model"
)

func flowerShop() *model.Seller {
	return &model.Seller{
		ID: 1,
		WorkingHours: model.WeekSchedule{
			"mon": {Open: "09:00", Close: "18:00"},
			"tue": {Open: "09:00", Close: "18:00"},
		},
		SlotDurationMin:   120,
		SlotLeadTimeMin:   60,
		SlotDaysAhead:     7,
		DeliveriesPerSlot: 2,
	}
}

func TestDayWindowsFutureDay(t *testing.T) {
	s := flowerShop()
	// 2026-03-02 is a Monday; "now" is the Sunday before, so only the
	// open+lead rule applies.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	windows := dayWindows(s, date, now, time.UTC)
	require.Len(t, windows, 3)
	// Earliest start 10:00 snaps up to the 2h grid anchored at 09:00;
	// a window ending past 18:00 close is never offered.
	assert.Equal(t, Window{Date: "2026-03-02", Start: "11:00", End: "13:00"}, windows[0])
	assert.Equal(t, Window{Date: "2026-03-02", Start: "15:00", End: "17:00"}, windows[2])
}

func TestDayWindowsSameDayLeadTime(t *testing.T) {
	s := flowerShop()
	// Mid-Monday: 12:30 plus 1h lead pushes the earliest start to 13:30,
	// snapped up to 15:00 on the grid.
	now := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	windows := dayWindows(s, date, now, time.UTC)
	require.Len(t, windows, 1)
	assert.Equal(t, "15:00", windows[0].Start)
}

func TestDayWindowsClosedDay(t *testing.T) {
	s := flowerShop()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	// Sunday has no schedule entry.
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, dayWindows(s, date, now, time.UTC))
}

func TestDayWindowsDayOver(t *testing.T) {
	s := flowerShop()
	// Late Monday evening nothing fits before close.
	now := time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, dayWindows(s, date, now, time.UTC))
}

func TestWindowAt(t *testing.T) {
	s := flowerShop()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w, ok := windowAt(s, "2026-03-02", "11:00", now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "13:00", w.End)

	// Off-grid start is not a real window.
	_, ok = windowAt(s, "2026-03-02", "10:00", now, time.UTC)
	assert.False(t, ok)

	// Yesterday is never bookable.
	_, ok = windowAt(s, "2026-02-28", "11:00", now, time.UTC)
	assert.False(t, ok)

	// Past the look-ahead horizon (7 days including today).
	_, ok = windowAt(s, "2026-03-09", "11:00", now, time.UTC)
	assert.False(t, ok)

	// Garbage date.
	_, ok = windowAt(s, "03/02/2026", "11:00", now, time.UTC)
	assert.False(t, ok)
}
