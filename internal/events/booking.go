// README: Booking lifecycle events published after a workflow commits.
package events

import (
	"time"

	"ridebook/internal/modules/booking"
	"ridebook/internal/types"
)

const (
	TypeBookingCreated  = "booking_created"
	TypeBookingAccepted = "booking_accepted"
	TypeBookingCanceled = "booking_canceled"
)

type BookingEvent struct {
	Type       string         `json:"type"`
	BookingID  types.ID       `json:"booking_id"`
	RiderID    types.ID       `json:"rider_id"`
	DriverID   *types.ID      `json:"driver_id,omitempty"`
	Status     booking.Status `json:"status"`
	Amount     types.Money    `json:"amount"`
	Refund     *types.Money   `json:"refund,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func NewBookingEvent(typ string, b booking.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		RiderID:    b.RiderID,
		DriverID:   b.DriverID,
		Status:     b.Status,
		Amount:     b.Amount,
		OccurredAt: at,
	}
}

func (e BookingEvent) WithRefund(m types.Money) BookingEvent {
	e.Refund = &m
	return e
}
