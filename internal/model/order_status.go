package model

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusAccepted       OrderStatus = "accepted"
	StatusAssembling     OrderStatus = "assembling"
	StatusInTransit      OrderStatus = "in_transit"
	StatusReadyForPickup OrderStatus = "ready_for_pickup"
	StatusDone           OrderStatus = "done"
	StatusCompleted      OrderStatus = "completed"
	StatusRejected       OrderStatus = "rejected"
	StatusCancelled      OrderStatus = "cancelled"
)

// transitions is the full set of allowed status changes.  Anything not
// listed here fails with an invalid-status-transition rejection and
// leaves all state untouched.
var transitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusAccepted:  true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusAccepted: {
		StatusAssembling:     true,
		StatusInTransit:      true,
		StatusReadyForPickup: true,
		StatusDone:           true,
		StatusCompleted:      true,
		StatusCancelled:      true,
	},
	StatusAssembling: {
		StatusInTransit:      true,
		StatusReadyForPickup: true,
		StatusDone:           true,
		StatusCompleted:      true,
		StatusCancelled:      true,
	},
	StatusInTransit: {
		StatusDone:      true,
		StatusCompleted: true,
	},
	StatusReadyForPickup: {
		StatusDone:      true,
		StatusCompleted: true,
	},
	StatusDone: {
		StatusCompleted: true,
	},
}

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusAssembling, StatusInTransit,
		StatusReadyForPickup, StatusDone, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to
// another according to the lifecycle table.
func CanTransition(from, to OrderStatus) bool {
	return transitions[from][to]
}
