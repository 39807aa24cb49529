package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusInTransit, false},
		{StatusAccepted, StatusAssembling, true},
		{StatusAccepted, StatusInTransit, true},
		{StatusAccepted, StatusReadyForPickup, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusRejected, false},
		{StatusAssembling, StatusInTransit, true},
		{StatusAssembling, StatusCancelled, true},
		{StatusInTransit, StatusDone, true},
		{StatusInTransit, StatusCancelled, false},
		{StatusReadyForPickup, StatusCompleted, true},
		{StatusDone, StatusCompleted, true},
		{StatusDone, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusRejected, StatusAccepted, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusDone.IsTerminal())
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, StatusAssembling.Valid())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.False(t, OrderStatus("").Valid())
}
