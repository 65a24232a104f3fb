// README: Google Maps collaborator: driving distance via the Distance Matrix API
// and best-effort city lookup via the Geocoding API.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

const DefaultTimeout = 5 * time.Second

var ErrNoDistance = errors.New("impossible to calculate distance via Google Maps")

type DistanceService struct {
	client  *maps.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDistanceService creates a client for apiKey. Extra options are passed to
// maps.NewClient (tests point WithBaseURL at a fake server).
func NewDistanceService(apiKey string, timeout time.Duration, logger zerolog.Logger, opts ...maps.ClientOption) (*DistanceService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DistanceService{
		client:  client,
		timeout: timeout,
		logger:  logger.With().Str("component", "maps").Logger(),
	}, nil
}

// DistanceKm returns the driving distance between from and to.
func (s *DistanceService) DistanceKm(ctx context.Context, from, to string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{from},
		Destinations: []string{to},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoDistance, err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("%w: empty response", ErrNoDistance)
	}
	el := resp.Rows[0].Elements[0]
	if el == nil || el.Status != "OK" {
		status := "missing element"
		if el != nil {
			status = el.Status
		}
		return 0, fmt.Errorf("%w: element status %s", ErrNoDistance, status)
	}
	return float64(el.Distance.Meters) / 1000, nil
}

// CityName returns the locality of address. Failures are logged and reported
// as not found.
func (s *DistanceService) CityName(ctx context.Context, address string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		s.logger.Debug().Err(err).Str("address", address).Msg("geocode failed")
		return "", false
	}
	if len(results) == 0 {
		return "", false
	}
	for _, c := range results[0].AddressComponents {
		for _, t := range c.Types {
			if t == "locality" {
				return c.LongName, true
			}
		}
	}
	return "", false
}
