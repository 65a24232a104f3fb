// README: Pricing engine: pure fare computation from origin, destination and distance.
package pricing

import (
	"fmt"

	"ridebook/internal/types"
)

type Service struct {
	rate Rate
}

func NewService(rate Rate) *Service {
	if rate.Hub == "" {
		rate.Hub = DefaultRate.Hub
	}
	return &Service{rate: rate}
}

func (s *Service) Rate() Rate { return s.rate }

func (s *Service) BasePrice(from, to string) types.Money {
	fromHub := from == s.rate.Hub
	toHub := to == s.rate.Hub
	switch {
	case fromHub && toHub:
		return s.rate.HubToHub
	case toHub:
		return s.rate.OtherToHub
	case fromHub:
		return s.rate.HubToOther
	default:
		return s.rate.OtherToOther
	}
}

// PerKmPrice panics on a negative distance: callers validate before pricing.
func (s *Service) PerKmPrice(d types.Distance) types.Money {
	if d < 0 {
		panic(fmt.Sprintf("pricing: negative distance %d m", d))
	}
	// half-up to the cent
	return types.Money((int64(d)*int64(s.rate.PerKm) + 500) / 1000)
}

func (s *Service) TotalPrice(from, to string, d types.Distance) types.Money {
	return s.BasePrice(from, to) + s.PerKmPrice(d)
}

// Quote returns the surcharge-free breakdown.
func (s *Service) Quote(from, to string, d types.Distance) Quote {
	q := Quote{Base: s.BasePrice(from, to), Distance: s.PerKmPrice(d)}
	q.Total = q.Sum()
	return q
}

var defaultService = NewService(DefaultRate)

func BasePrice(from, to string) types.Money { return defaultService.BasePrice(from, to) }

func PerKmPrice(d types.Distance) types.Money { return defaultService.PerKmPrice(d) }

func TotalPrice(from, to string, d types.Distance) types.Money {
	return defaultService.TotalPrice(from, to, d)
}
