// README: Collaborators consumed by the booking workflow.
package ride

import (
	"context"

	"ridebook/internal/events"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/driver"
	"ridebook/internal/modules/rider"
	"ridebook/internal/types"
)

type RiderStore interface {
	FindByID(ctx context.Context, id types.ID) (rider.Rider, error)
	Save(ctx context.Context, r rider.Rider) error
}

type BookingStore interface {
	FindByID(ctx context.Context, id types.ID) (booking.Booking, error)
	FindByRiderID(ctx context.Context, riderID types.ID) ([]booking.Booking, error)
	Save(ctx context.Context, b booking.Booking) error
}

type DriverStore interface {
	FindByID(ctx context.Context, id types.ID) (driver.Driver, error)
	Save(ctx context.Context, d driver.Driver) error
}

// Stores are bound to one unit of work.
type Stores struct {
	Riders   RiderStore
	Bookings BookingStore
	Drivers  DriverStore
}

// TxRunner commits everything fn saved, or nothing when fn fails.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type DistanceProvider interface {
	DistanceKm(ctx context.Context, from, to string) (float64, error)
}

// CityResolver maps an address to the city used for pricing. Best effort.
type CityResolver interface {
	CityName(ctx context.Context, address string) (string, bool)
}

type Publisher interface {
	Publish(ctx context.Context, e events.BookingEvent) error
}
