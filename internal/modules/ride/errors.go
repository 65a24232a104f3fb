// README: Workflow error kinds. Module sentinels are re-exported so callers
// only need this package.
package ride

import (
	"errors"

	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/driver"
	"ridebook/internal/modules/rider"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrExistingActiveBooking = errors.New("rider already has an active booking")
	ErrDistanceUnavailable   = errors.New("distance unavailable")

	ErrValidation      = booking.ErrValidation
	ErrInvalidState    = booking.ErrInvalidState
	ErrNothingToCancel = booking.ErrNothingToCancel
	ErrBookingNotFound = booking.ErrNotFound
	ErrRiderNotFound   = rider.ErrNotFound
	ErrDriverNotFound  = driver.ErrNotFound
)
