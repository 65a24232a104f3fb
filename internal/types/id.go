// README: Opaque identifiers for riders, drivers and bookings.
package types

type ID string

func (id ID) String() string { return string(id) }

// IDPtr returns nil for an empty id.
func IDPtr(id ID) *ID {
	if id == "" {
		return nil
	}
	return &id
}
