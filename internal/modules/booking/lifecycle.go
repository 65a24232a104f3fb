// README: Booking state transitions (accept, cancel) and the cancellation refund rule.
package booking

import (
	"fmt"
	"time"

	"ridebook/internal/calendar"
	"ridebook/internal/modules/driver"
	"ridebook/internal/types"
)

// CancellationFee is withheld when an accepted booking is canceled.
const CancellationFee = 5 * types.Unit

// Accept assigns the driver to a pending booking. Both values are returned
// updated; the inputs are left untouched.
func Accept(b Booking, d driver.Driver) (Booking, driver.Driver, error) {
	if !CanTransition(b.Status, StatusAccepted) {
		return b, d, fmt.Errorf("%w: cannot accept booking %s in status %s", ErrInvalidState, b.ID, b.Status)
	}
	driverID := d.ID
	bookingID := b.ID
	b.Status = StatusAccepted
	b.DriverID = &driverID
	d.CurrentBookingID = &bookingID
	return b, d, nil
}

// Cancel moves an active booking to CANCELED and returns the refund owed to
// the rider. birthday may be zero when unknown.
func Cancel(b Booking, today, birthday time.Time) (Booking, types.Money, error) {
	if !CanTransition(b.Status, StatusCanceled) {
		return b, 0, fmt.Errorf("%w: booking %s is %s", ErrNothingToCancel, b.ID, b.Status)
	}
	refund := Refund(b, today, birthday)
	b.Status = StatusCanceled
	return b, refund, nil
}

// Refund computes what canceling b today would give back.
func Refund(b Booking, today, birthday time.Time) types.Money {
	if b.Status != StatusAccepted {
		return b.Amount
	}
	if !birthday.IsZero() && calendar.SameMonthDay(birthday, today) {
		return b.Amount
	}
	refund := b.Amount - CancellationFee
	if refund < 0 {
		return 0
	}
	return refund
}
