// README: Rider account rules: balance checks and the single active booking rule.
package rider

import (
	"ridebook/internal/modules/booking"
	"ridebook/internal/types"
)

// Pricer prices a candidate booking without surcharges.
type Pricer interface {
	TotalPrice(from, to string, d types.Distance) types.Money
}

func CheckBalance(balance, price types.Money) bool {
	return balance >= price
}

// HasNoPendingRide treats ACCEPTED as pending too.
func HasNoPendingRide(bookings []booking.Booking) bool {
	for _, b := range bookings {
		if b.IsActive() {
			return false
		}
	}
	return true
}

// CanBookRide checks the rider's existing bookings only; the candidate is
// not expected to be in r.Bookings.
func CanBookRide(r Rider, candidate booking.Booking, p Pricer) bool {
	var d types.Distance
	if candidate.Distance != nil {
		d = *candidate.Distance
	}
	return CheckBalance(r.Balance, p.TotalPrice(candidate.From, candidate.To, d)) &&
		HasNoPendingRide(r.Bookings)
}
