// README: Booking aggregate, status definitions and constructor validation.
package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridebook/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusCanceled Status = "canceled"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrNothingToCancel = errors.New("nothing to cancel")
	ErrNotFound        = errors.New("booking not found")
)

type Booking struct {
	ID        types.ID
	RiderID   types.ID
	DriverID  *types.ID
	From      string
	To        string
	Status    Status
	Amount    types.Money
	Distance  *types.Distance
	CreatedAt time.Time
}

// IsActive reports whether the booking still blocks a new one.
func (b Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusAccepted
}

// AllowedTransitions represents the booking state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusCanceled},
	StatusAccepted: {StatusCanceled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type NewParams struct {
	ID        types.ID
	RiderID   types.ID
	From      string
	To        string
	Amount    types.Money
	Distance  *types.Distance
	CreatedAt time.Time
}

// New builds a PENDING booking.
func New(p NewParams) (Booking, error) {
	if p.ID == "" {
		return Booking{}, fmt.Errorf("%w: empty booking id", ErrValidation)
	}
	if p.RiderID == "" {
		return Booking{}, fmt.Errorf("%w: empty rider id", ErrValidation)
	}
	if err := ValidateRoute(p.From, p.To); err != nil {
		return Booking{}, err
	}
	if p.Amount <= 0 {
		return Booking{}, fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, p.Amount)
	}
	if p.Distance != nil && (*p.Distance < 0 || *p.Distance > types.MaxDistance) {
		return Booking{}, fmt.Errorf("%w: distance %d m out of range", ErrValidation, *p.Distance)
	}
	// same endpoints only describe an intra-city trip with a measured distance
	if p.From == p.To && (p.Distance == nil || *p.Distance == 0) {
		return Booking{}, fmt.Errorf("%w: from and to must differ", ErrValidation)
	}
	var dist *types.Distance
	if p.Distance != nil {
		d := *p.Distance
		dist = &d
	}
	return Booking{
		ID:        p.ID,
		RiderID:   p.RiderID,
		From:      p.From,
		To:        p.To,
		Status:    StatusPending,
		Amount:    p.Amount,
		Distance:  dist,
		CreatedAt: p.CreatedAt,
	}, nil
}

// ValidateRoute rejects blank endpoints before any distance lookup.
func ValidateRoute(from, to string) error {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: from and to are required", ErrValidation)
	}
	return nil
}

func NewID() types.ID {
	return types.ID(uuid.NewString())
}
