// README: Redis read-through cache in front of a distance provider.
package maps

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ridebook/internal/metrics"
)

type DistanceProvider interface {
	DistanceKm(ctx context.Context, from, to string) (float64, error)
}

const cacheKeyPrefix = "ridebook:distance:"

type CachedDistance struct {
	next   DistanceProvider
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedDistance(next DistanceProvider, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedDistance {
	return &CachedDistance{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "distance_cache").Logger(),
	}
}

// DistanceKm serves from Redis when possible. Redis errors fall through to
// the provider; provider errors are never cached.
func (c *CachedDistance) DistanceKm(ctx context.Context, from, to string) (float64, error) {
	key := cacheKey(from, to)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if km, perr := strconv.ParseFloat(raw, 64); perr == nil {
			metrics.IncDistanceLookup("cache_hit")
			return km, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding malformed cached distance")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Msg("distance cache read failed")
	}

	metrics.IncDistanceLookup("cache_miss")
	km, err := c.next.DistanceKm(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, key, strconv.FormatFloat(km, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("distance cache write failed")
	}
	return km, nil
}

// cacheKey length-prefixes the origin so addresses containing the
// separator cannot collide.
func cacheKey(from, to string) string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	f := norm(from)
	return cacheKeyPrefix + strconv.Itoa(len(f)) + ":" + f + "|" + norm(to)
}
