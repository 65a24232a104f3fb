// README: Rider handlers for book, quote, cancel and history.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebook/internal/modules/ride"
	"ridebook/internal/types"
)

type RiderHandler struct {
	rides RideService
}

func NewRiderHandler(svc RideService) *RiderHandler {
	return &RiderHandler{rides: svc}
}

type bookReq struct {
	RiderID    string   `json:"rider_id"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	DistanceKm *float64 `json:"distance_km"`
	Premium    bool     `json:"premium"`
}

func (r bookReq) command() ride.BookCommand {
	return ride.BookCommand{
		RiderID:    types.ID(r.RiderID),
		From:       r.From,
		To:         r.To,
		DistanceKm: r.DistanceKm,
		Premium:    r.Premium,
	}
}

func (h *RiderHandler) bindBook(c *gin.Context) (bookReq, bool) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if !isValidID(req.RiderID) {
		writeError(c, http.StatusBadRequest, "invalid rider_id")
		return req, false
	}
	if req.From == "" || req.To == "" {
		writeError(c, http.StatusBadRequest, "from and to are required")
		return req, false
	}
	return req, true
}

func (h *RiderHandler) Book(c *gin.Context) {
	req, ok := h.bindBook(c)
	if !ok {
		return
	}
	b, err := h.rides.BookRide(c.Request.Context(), req.command())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toBookingResponse(b))
}

func (h *RiderHandler) Quote(c *gin.Context) {
	req, ok := h.bindBook(c)
	if !ok {
		return
	}
	q, err := h.rides.Quote(c.Request.Context(), req.command())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

type cancelReq struct {
	RiderID string `json:"rider_id"`
}

func (h *RiderHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.RiderID) {
		writeError(c, http.StatusBadRequest, "invalid rider_id")
		return
	}
	b, err := h.rides.CancelBooking(c.Request.Context(), types.ID(req.RiderID))
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

type historyEntry struct {
	bookingResponse
	DriverName *string `json:"driver_name"`
}

func (h *RiderHandler) History(c *gin.Context) {
	riderID := c.Param("riderId")
	if !isValidID(riderID) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	entries, err := h.rides.ListRideHistory(c.Request.Context(), types.ID(riderID))
	if err != nil {
		writeRideError(c, err)
		return
	}
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{bookingResponse: toBookingResponse(e.Booking), DriverName: e.DriverName})
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": out})
}
