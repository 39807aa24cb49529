package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForWeekday(t *testing.T) {
	ws := WeekSchedule{
		"mon": {Open: "09:00", Close: "18:00"},
		"sat": {Open: "10:30", Close: "14:00"},
	}

	open, close, ok := ws.ForWeekday(time.Monday)
	require.True(t, ok)
	assert.Equal(t, 9*time.Hour, open)
	assert.Equal(t, 18*time.Hour, close)

	open, _, ok = ws.ForWeekday(time.Saturday)
	require.True(t, ok)
	assert.Equal(t, 10*time.Hour+30*time.Minute, open)

	// Missing day means closed.
	_, _, ok = ws.ForWeekday(time.Sunday)
	assert.False(t, ok)
}

func TestForWeekdayMalformed(t *testing.T) {
	cases := []WeekSchedule{
		{"mon": {Open: "9am", Close: "18:00"}},
		{"mon": {Open: "09:00", Close: ""}},
		{"mon": {Open: "18:00", Close: "09:00"}}, // inverted interval
	}
	for _, ws := range cases {
		_, _, ok := ws.ForWeekday(time.Monday)
		assert.False(t, ok)
	}
}

func TestParseWeekSchedule(t *testing.T) {
	raw := []byte(`{"mon":{"open":"09:00","close":"18:00"},"fri":{"open":"08:00","close":"20:00"}}`)
	ws, err := ParseWeekSchedule(raw)
	require.NoError(t, err)
	assert.Len(t, ws, 2)
	assert.Equal(t, "20:00", ws["fri"].Close)

	_, err = ParseWeekSchedule([]byte(`not json`))
	assert.Error(t, err)
}
