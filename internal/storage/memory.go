// README: In-memory unit of work for tests and local runs. Transactions are
// serialized and commit by swapping in a copy of the state.
package storage

import (
	"context"
	"sort"
	"sync"

	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/driver"
	"ridebook/internal/modules/ride"
	"ridebook/internal/modules/rider"
	"ridebook/internal/types"
)

type Memory struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	riders   map[types.ID]rider.Rider
	drivers  map[types.ID]driver.Driver
	bookings map[types.ID]memBooking
	seq      int64
}

type memBooking struct {
	booking.Booking
	seq int64
}

func NewMemory() *Memory {
	return &Memory{state: &memState{
		riders:   map[types.ID]rider.Rider{},
		drivers:  map[types.ID]driver.Driver{},
		bookings: map[types.ID]memBooking{},
	}}
}

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, s ride.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(ctx, ride.Stores{
		Riders:   memRiders{work},
		Bookings: memBookings{work},
		Drivers:  memDrivers{work},
	}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (s *memState) clone() *memState {
	out := &memState{
		riders:   make(map[types.ID]rider.Rider, len(s.riders)),
		drivers:  make(map[types.ID]driver.Driver, len(s.drivers)),
		bookings: make(map[types.ID]memBooking, len(s.bookings)),
		seq:      s.seq,
	}
	for k, v := range s.riders {
		out.riders[k] = v
	}
	for k, v := range s.drivers {
		out.drivers[k] = v
	}
	for k, v := range s.bookings {
		out.bookings[k] = v
	}
	return out
}

type memRiders struct{ s *memState }

func (r memRiders) FindByID(ctx context.Context, id types.ID) (rider.Rider, error) {
	out, ok := r.s.riders[id]
	if !ok {
		return rider.Rider{}, rider.ErrNotFound
	}
	bookings, err := memBookings(r).FindByRiderID(ctx, id)
	if err != nil {
		return rider.Rider{}, err
	}
	out.Bookings = bookings
	return out, nil
}

// Save stores balance and birthday; bookings live in the booking map.
func (r memRiders) Save(_ context.Context, v rider.Rider) error {
	v.Bookings = nil
	r.s.riders[v.ID] = v
	return nil
}

type memBookings struct{ s *memState }

func (b memBookings) FindByID(_ context.Context, id types.ID) (booking.Booking, error) {
	out, ok := b.s.bookings[id]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	return out.Booking, nil
}

// FindByRiderID returns bookings in insertion order.
func (b memBookings) FindByRiderID(ctx context.Context, riderID types.ID) ([]booking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := []memBooking{}
	for _, v := range b.s.bookings {
		if v.RiderID == riderID {
			rows = append(rows, v)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]booking.Booking, 0, len(rows))
	for _, v := range rows {
		out = append(out, v.Booking)
	}
	return out, nil
}

func (b memBookings) Save(_ context.Context, v booking.Booking) error {
	existing, ok := b.s.bookings[v.ID]
	seq := existing.seq
	if !ok {
		b.s.seq++
		seq = b.s.seq
	}
	b.s.bookings[v.ID] = memBooking{Booking: v, seq: seq}
	return nil
}

type memDrivers struct{ s *memState }

func (d memDrivers) FindByID(_ context.Context, id types.ID) (driver.Driver, error) {
	out, ok := d.s.drivers[id]
	if !ok {
		return driver.Driver{}, driver.ErrNotFound
	}
	return out, nil
}

func (d memDrivers) Save(_ context.Context, v driver.Driver) error {
	d.s.drivers[v.ID] = v
	return nil
}
