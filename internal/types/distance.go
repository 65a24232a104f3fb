// README: Distance in whole metres so per-km pricing stays exact.
package types

import "math"

type Distance int64

const (
	Metre     Distance = 1
	Kilometre Distance = 1000
)

// MaxDistance bounds a single ride. Readings above it are rejected before
// they reach pricing.
const MaxDistance = 20000 * Kilometre

// Km converts a kilometre reading to metres, rounding to the nearest metre.
func Km(km float64) Distance {
	return Distance(math.Round(km * 1000))
}

func (d Distance) Kilometres() float64 {
	return float64(d) / 1000
}
