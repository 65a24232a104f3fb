// README: Base handler utilities (JSON helpers, error mapping, DTOs).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/ride"
	"ridebook/internal/types"
)

// RideService is the booking workflow as seen by the handlers.
type RideService interface {
	BookRide(ctx context.Context, cmd ride.BookCommand) (booking.Booking, error)
	Quote(ctx context.Context, cmd ride.BookCommand) (pricing.Quote, error)
	CancelBooking(ctx context.Context, riderID types.ID) (booking.Booking, error)
	AcceptBooking(ctx context.Context, cmd ride.AcceptCommand) (booking.Booking, error)
	ListRideHistory(ctx context.Context, riderID types.ID) ([]ride.HistoryEntry, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts UUIDs and short slug-style ids.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeRideError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ride.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ride.ErrInsufficientFunds):
		writeError(c, http.StatusPaymentRequired, ride.ErrInsufficientFunds.Error())
	case errors.Is(err, ride.ErrRiderNotFound),
		errors.Is(err, ride.ErrBookingNotFound),
		errors.Is(err, ride.ErrDriverNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrExistingActiveBooking),
		errors.Is(err, ride.ErrNothingToCancel),
		errors.Is(err, ride.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ride.ErrDistanceUnavailable):
		writeError(c, http.StatusBadGateway, ride.ErrDistanceUnavailable.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type bookingResponse struct {
	ID         types.ID       `json:"id"`
	RiderID    types.ID       `json:"rider_id"`
	DriverID   *types.ID      `json:"driver_id"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Status     booking.Status `json:"status"`
	Amount     types.Money    `json:"amount"`
	DistanceKm *float64       `json:"distance_km"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toBookingResponse(b booking.Booking) bookingResponse {
	out := bookingResponse{
		ID:        b.ID,
		RiderID:   b.RiderID,
		DriverID:  b.DriverID,
		From:      b.From,
		To:        b.To,
		Status:    b.Status,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
	if b.Distance != nil {
		km := b.Distance.Kilometres()
		out.DistanceKm = &km
	}
	return out
}
