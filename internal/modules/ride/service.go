// README: Booking workflow: book, cancel, accept and history over the stores.
package ride

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"ridebook/internal/calendar"
	"ridebook/internal/events"
	"ridebook/internal/metrics"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/driver"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/rider"
	"ridebook/internal/types"
)

// Surcharges applied on top of the pricing engine's total.
type Surcharges struct {
	Holiday         calendar.Holiday
	SurgeMultiplier int64
	PremiumFee      types.Money
}

var DefaultSurcharges = Surcharges{
	Holiday:         calendar.Christmas,
	SurgeMultiplier: 2,
	PremiumFee:      5 * types.Unit,
}

type Service struct {
	tx         TxRunner
	pricing    *pricing.Service
	calendar   calendar.Calendar
	distance   DistanceProvider
	cities     CityResolver
	publisher  Publisher
	surcharges Surcharges
	logger     zerolog.Logger
	now        func() time.Time
	newID      func() types.ID
}

type Option func(*Service)

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithCityResolver prices rides on the resolved cities instead of the raw
// addresses.
func WithCityResolver(c CityResolver) Option { return func(s *Service) { s.cities = c } }

func WithSurcharges(c Surcharges) Option { return func(s *Service) { s.surcharges = c } }

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(f func() types.ID) Option { return func(s *Service) { s.newID = f } }

func NewService(tx TxRunner, engine *pricing.Service, cal calendar.Calendar, distance DistanceProvider, opts ...Option) *Service {
	s := &Service{
		tx:         tx,
		pricing:    engine,
		calendar:   cal,
		distance:   distance,
		surcharges: DefaultSurcharges,
		logger:     zerolog.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      booking.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type BookCommand struct {
	RiderID    types.ID
	From       string
	To         string
	DistanceKm *float64
	Premium    bool
}

type AcceptCommand struct {
	DriverID  types.ID
	BookingID types.ID
}

type HistoryEntry struct {
	Booking    booking.Booking
	DriverName *string
}

// BookRide prices and books a ride. Surcharges are applied before the funds
// check, and the funds check precedes the active booking check.
func (s *Service) BookRide(ctx context.Context, cmd BookCommand) (booking.Booking, error) {
	b, err := s.book(ctx, cmd)
	s.record("book", err)
	return b, err
}

// Quote prices a ride for the rider without booking it.
func (s *Service) Quote(ctx context.Context, cmd BookCommand) (pricing.Quote, error) {
	if cmd.RiderID == "" {
		return pricing.Quote{}, fmt.Errorf("%w: empty rider id", ErrValidation)
	}
	if err := booking.ValidateRoute(cmd.From, cmd.To); err != nil {
		return pricing.Quote{}, err
	}
	dist, err := s.resolveDistance(ctx, cmd)
	if err != nil {
		return pricing.Quote{}, err
	}
	z := s.zoneFor(ctx, cmd.From, cmd.To)
	today := s.calendar.Today()
	var q pricing.Quote
	err = s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		r, err := st.Riders.FindByID(ctx, cmd.RiderID)
		if err != nil {
			return err
		}
		q = s.quote(z, cmd.Premium, dist, today, r)
		return nil
	})
	return q, err
}

func (s *Service) book(ctx context.Context, cmd BookCommand) (booking.Booking, error) {
	if cmd.RiderID == "" {
		return booking.Booking{}, fmt.Errorf("%w: empty rider id", ErrValidation)
	}
	if err := booking.ValidateRoute(cmd.From, cmd.To); err != nil {
		return booking.Booking{}, err
	}
	dist, err := s.resolveDistance(ctx, cmd)
	if err != nil {
		return booking.Booking{}, err
	}
	z := s.zoneFor(ctx, cmd.From, cmd.To)
	today := s.calendar.Today()

	var out booking.Booking
	err = s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		r, err := st.Riders.FindByID(ctx, cmd.RiderID)
		if err != nil {
			return err
		}
		q := s.quote(z, cmd.Premium, dist, today, r)
		if !rider.CheckBalance(r.Balance, q.Total) {
			return fmt.Errorf("%w: balance %s, price %s", ErrInsufficientFunds, r.Balance, q.Total)
		}
		candidate, err := booking.New(booking.NewParams{
			ID:        s.newID(),
			RiderID:   r.ID,
			From:      cmd.From,
			To:        cmd.To,
			Amount:    q.Total,
			Distance:  &dist,
			CreatedAt: s.now(),
		})
		if err != nil {
			return err
		}
		if !rider.CanBookRide(r, candidate, z) {
			return ErrExistingActiveBooking
		}
		if err := st.Bookings.Save(ctx, candidate); err != nil {
			return err
		}
		if err := st.Riders.Save(ctx, r.Book(candidate)); err != nil {
			return err
		}
		out = candidate
		return nil
	})
	if err != nil {
		return booking.Booking{}, err
	}

	metrics.AddBooked(int64(out.Amount))
	s.logger.Info().
		Str("booking_id", string(out.ID)).
		Str("rider_id", string(out.RiderID)).
		Str("amount", out.Amount.String()).
		Msg("ride booked")
	s.publish(ctx, events.NewBookingEvent(events.TypeBookingCreated, out, s.now()))
	return out, nil
}

// zone is the pair of places the pricing engine sees for a ride.
type zone struct {
	engine   *pricing.Service
	from, to string
}

// TotalPrice ignores the booking's raw addresses in favour of the zone.
func (z zone) TotalPrice(_, _ string, d types.Distance) types.Money {
	return z.engine.TotalPrice(z.from, z.to, d)
}

func (s *Service) zoneFor(ctx context.Context, from, to string) zone {
	z := zone{engine: s.pricing, from: from, to: to}
	if s.cities == nil {
		return z
	}
	if city, ok := s.cities.CityName(ctx, from); ok {
		z.from = city
	}
	if city, ok := s.cities.CityName(ctx, to); ok {
		z.to = city
	}
	return z
}

func (s *Service) quote(z zone, premium bool, dist types.Distance, today time.Time, r rider.Rider) pricing.Quote {
	q := s.pricing.Quote(z.from, z.to, dist)
	if s.surcharges.Holiday.On(today) && s.surcharges.SurgeMultiplier > 1 {
		q.Surge = q.Total.Mul(s.surcharges.SurgeMultiplier - 1)
	}
	if premium && !r.IsBirthday(today) {
		q.Premium = s.surcharges.PremiumFee
	}
	q.Total = q.Sum()
	return q
}

func (s *Service) resolveDistance(ctx context.Context, cmd BookCommand) (types.Distance, error) {
	if cmd.DistanceKm != nil {
		km := *cmd.DistanceKm
		if km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
			return 0, fmt.Errorf("%w: distance must be a non-negative number", ErrValidation)
		}
		if km > types.MaxDistance.Kilometres() {
			return 0, fmt.Errorf("%w: distance %v km exceeds %v km", ErrValidation, km, types.MaxDistance.Kilometres())
		}
		metrics.IncDistanceLookup("provided")
		return types.Km(km), nil
	}
	if s.distance == nil {
		return 0, fmt.Errorf("%w: no distance provider configured", ErrDistanceUnavailable)
	}
	km, err := s.distance.DistanceKm(ctx, cmd.From, cmd.To)
	if err != nil {
		metrics.IncDistanceLookup("error")
		return 0, fmt.Errorf("%w: %v", ErrDistanceUnavailable, err)
	}
	if km < 0 || math.IsNaN(km) || math.IsInf(km, 0) || km > types.MaxDistance.Kilometres() {
		return 0, fmt.Errorf("%w: provider returned %v km", ErrDistanceUnavailable, km)
	}
	return types.Km(km), nil
}

// CancelBooking cancels the rider's active booking and credits the refund.
func (s *Service) CancelBooking(ctx context.Context, riderID types.ID) (booking.Booking, error) {
	today := s.calendar.Today()

	var out booking.Booking
	var refund types.Money
	err := s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		r, err := st.Riders.FindByID(ctx, riderID)
		if err != nil {
			return err
		}
		active, ok := r.ActiveBooking()
		if !ok {
			return fmt.Errorf("%w: rider %s has no active booking", ErrNothingToCancel, riderID)
		}
		canceled, amount, err := booking.Cancel(active, today, r.Birthday)
		if err != nil {
			return err
		}
		if err := st.Bookings.Save(ctx, canceled); err != nil {
			return err
		}
		if err := st.Riders.Save(ctx, r.WithBooking(canceled).Credit(amount)); err != nil {
			return err
		}
		out, refund = canceled, amount
		return nil
	})
	s.record("cancel", err)
	if err != nil {
		return booking.Booking{}, err
	}

	metrics.AddRefunded(int64(refund))
	s.logger.Info().
		Str("booking_id", string(out.ID)).
		Str("rider_id", string(riderID)).
		Str("refund", refund.String()).
		Msg("booking canceled")
	s.publish(ctx, events.NewBookingEvent(events.TypeBookingCanceled, out, s.now()).WithRefund(refund))
	return out, nil
}

// AcceptBooking assigns a driver to a pending booking.
func (s *Service) AcceptBooking(ctx context.Context, cmd AcceptCommand) (booking.Booking, error) {
	var out booking.Booking
	err := s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		d, err := st.Drivers.FindByID(ctx, cmd.DriverID)
		if err != nil {
			return err
		}
		b, err := st.Bookings.FindByID(ctx, cmd.BookingID)
		if err != nil {
			return err
		}
		// Loading the rider takes its row lock, which serializes this with
		// booking and canceling. Re-read the booking under that lock.
		r, err := st.Riders.FindByID(ctx, b.RiderID)
		if err != nil {
			return err
		}
		if locked, ok := r.Booking(b.ID); ok {
			b = locked
		}
		accepted, assigned, err := booking.Accept(b, d)
		if err != nil {
			return err
		}
		if err := st.Bookings.Save(ctx, accepted); err != nil {
			return err
		}
		if err := st.Drivers.Save(ctx, assigned); err != nil {
			return err
		}
		out = accepted
		return nil
	})
	s.record("accept", err)
	if err != nil {
		return booking.Booking{}, err
	}

	s.logger.Info().
		Str("booking_id", string(out.ID)).
		Str("driver_id", string(cmd.DriverID)).
		Msg("booking accepted")
	s.publish(ctx, events.NewBookingEvent(events.TypeBookingAccepted, out, s.now()))
	return out, nil
}

// ListRideHistory returns the rider's bookings, newest first, with driver
// names. A driver that cannot be found yields a nil name.
func (s *Service) ListRideHistory(ctx context.Context, riderID types.ID) ([]HistoryEntry, error) {
	out := []HistoryEntry{}
	err := s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		bookings, err := st.Bookings.FindByRiderID(ctx, riderID)
		if err != nil {
			return err
		}
		sorted := make([]booking.Booking, len(bookings))
		copy(sorted, bookings)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})

		names := map[types.ID]*string{}
		for _, b := range sorted {
			entry := HistoryEntry{Booking: b}
			if b.DriverID != nil {
				name, cached := names[*b.DriverID]
				if !cached {
					d, err := st.Drivers.FindByID(ctx, *b.DriverID)
					switch {
					case errors.Is(err, driver.ErrNotFound):
					case err != nil:
						return err
					default:
						name = d.DisplayName()
					}
					names[*b.DriverID] = name
				}
				entry.DriverName = name
			}
			out = append(out, entry)
		}
		return nil
	})
	s.record("history", err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, e events.BookingEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("type", e.Type).Str("booking_id", string(e.BookingID)).Msg("publish booking event failed")
	}
}

func (s *Service) record(operation string, err error) {
	metrics.IncRideOperation(operation, resultLabel(err))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrExistingActiveBooking):
		return "active_booking"
	case errors.Is(err, ErrNothingToCancel):
		return "nothing_to_cancel"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrRiderNotFound), errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrDriverNotFound):
		return "not_found"
	case errors.Is(err, ErrDistanceUnavailable):
		return "distance_unavailable"
	default:
		return "error"
	}
}
