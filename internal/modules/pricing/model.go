// README: Pricing rate table and fare breakdown.
package pricing

import "ridebook/internal/types"

// Rate is the flat fee schedule keyed on the hub plus the per-km rate.
type Rate struct {
	Hub          string
	HubToHub     types.Money
	OtherToHub   types.Money
	HubToOther   types.Money
	OtherToOther types.Money
	PerKm        types.Money
}

var DefaultRate = Rate{
	Hub:          "Paris",
	HubToHub:     types.Units(2),
	OtherToHub:   0,
	HubToOther:   types.Units(10),
	OtherToOther: 0,
	PerKm:        50,
}

// Quote is the breakdown of a booking amount. Surge and Premium are
// filled in by the booking workflow.
type Quote struct {
	Base     types.Money `json:"base"`
	Distance types.Money `json:"distance"`
	Surge    types.Money `json:"surge"`
	Premium  types.Money `json:"premium"`
	Total    types.Money `json:"total"`
}

func (q Quote) Sum() types.Money {
	return q.Base + q.Distance + q.Surge + q.Premium
}
