// README: Driver aggregate; CurrentBookingID points at the latest accepted booking.
package driver

import (
	"errors"

	"ridebook/internal/types"
)

var ErrNotFound = errors.New("driver not found")

type Driver struct {
	ID               types.ID
	Name             *string
	CurrentBookingID *types.ID
}

// DisplayName returns nil when the driver has no name on file.
func (d Driver) DisplayName() *string {
	if d.Name == nil {
		return nil
	}
	n := *d.Name
	return &n
}
