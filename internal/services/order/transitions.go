package order

import (
	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/models"
)

// CheckTransition applies the order state machine for direct status
// updates. PAID is reachable only through payment and is terminal.
func CheckTransition(from, to models.OrderStatus) error {
	switch {
	case from == models.StatusPaid:
		return apperr.InvalidStatef("order is paid, no further status changes are allowed")
	case to == models.StatusPaid:
		return apperr.InvalidStatef("an order becomes PAID only through payment")
	case from == models.StatusCancelled:
		return apperr.InvalidStatef("order is cancelled")
	case from == to:
		return apperr.InvalidStatef("order is already %s", from)
	case to == models.StatusCancelled:
		return nil
	case from == models.StatusPlaced && to == models.StatusPreparing:
		return nil
	case from == models.StatusPreparing && to == models.StatusReady:
		return nil
	case from == models.StatusPlaced && to == models.StatusReady:
		return apperr.InvalidStatef("must pass through preparing first")
	default:
		return apperr.InvalidStatef("illegal status transition from %s to %s", from, to)
	}
}

// editable reports whether lines of an order in this status may change
func editable(status models.OrderStatus) error {
	switch status {
	case models.StatusPaid:
		return apperr.InvalidStatef("lines of a paid order cannot be changed")
	case models.StatusCancelled:
		return apperr.InvalidStatef("lines of a cancelled order cannot be changed")
	}
	return nil
}
