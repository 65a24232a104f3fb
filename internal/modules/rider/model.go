// README: Rider aggregate. Updates return new values; nothing mutates in place.
package rider

import (
	"errors"
	"time"

	"ridebook/internal/calendar"
	"ridebook/internal/modules/booking"
	"ridebook/internal/types"
)

var ErrNotFound = errors.New("rider not found")

type Rider struct {
	ID       types.ID
	Balance  types.Money
	Birthday time.Time // zero when unknown
	Bookings []booking.Booking
}

func (r Rider) IsBirthday(today time.Time) bool {
	return !r.Birthday.IsZero() && calendar.SameMonthDay(r.Birthday, today)
}

// ActiveBooking returns the rider's PENDING or ACCEPTED booking.
func (r Rider) ActiveBooking() (booking.Booking, bool) {
	for _, b := range r.Bookings {
		if b.IsActive() {
			return b, true
		}
	}
	return booking.Booking{}, false
}

func (r Rider) Booking(id types.ID) (booking.Booking, bool) {
	for _, b := range r.Bookings {
		if b.ID == id {
			return b, true
		}
	}
	return booking.Booking{}, false
}

// Book debits the booking amount and appends it.
func (r Rider) Book(b booking.Booking) Rider {
	out := r.clone()
	out.Balance -= b.Amount
	out.Bookings = append(out.Bookings, b)
	return out
}

func (r Rider) Credit(m types.Money) Rider {
	out := r.clone()
	out.Balance += m
	return out
}

// WithBooking replaces the booking with the same id.
func (r Rider) WithBooking(b booking.Booking) Rider {
	out := r.clone()
	for i := range out.Bookings {
		if out.Bookings[i].ID == b.ID {
			out.Bookings[i] = b
			return out
		}
	}
	out.Bookings = append(out.Bookings, b)
	return out
}

func (r Rider) clone() Rider {
	out := r
	out.Bookings = make([]booking.Booking, len(r.Bookings), len(r.Bookings)+1)
	copy(out.Bookings, r.Bookings)
	return out
}
