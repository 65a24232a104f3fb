// README: Driver handler for accepting a booking.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebook/internal/modules/ride"
	"ridebook/internal/types"
)

type DriverHandler struct {
	rides RideService
}

func NewDriverHandler(svc RideService) *DriverHandler {
	return &DriverHandler{rides: svc}
}

type acceptReq struct {
	DriverID string `json:"driver_id"`
}

func (h *DriverHandler) Accept(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid booking id")
		return
	}
	var req acceptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.DriverID) {
		writeError(c, http.StatusBadRequest, "invalid driver_id")
		return
	}
	b, err := h.rides.AcceptBooking(c.Request.Context(), ride.AcceptCommand{
		DriverID:  types.ID(req.DriverID),
		BookingID: types.ID(id),
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}
