package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedEstimator wraps another Estimator with a Redis read-through cache.
// Cache traffic carries a short timeout and any Redis failure degrades to
// the inner estimator, preserving the never-fails contract.
type CachedEstimator struct {
	inner   Estimator
	rdb     *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewCachedEstimator returns a caching wrapper around inner. A nil client
// disables caching entirely.
func NewCachedEstimator(inner Estimator, rdb *redis.Client, ttl time.Duration) *CachedEstimator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEstimator{inner: inner, rdb: rdb, ttl: ttl, timeout: 250 * time.Millisecond}
}

// DistanceKm implements Estimator.
func (e *CachedEstimator) DistanceKm(ctx context.Context, from, to Location) float64 {
	if e.rdb == nil {
		return e.inner.DistanceKm(ctx, from, to)
	}

	key := cacheKey(from, to)
	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if val, err := e.rdb.Get(rctx, key).Result(); err == nil {
		if km, perr := strconv.ParseFloat(val, 64); perr == nil {
			return km
		}
	}

	km := e.inner.DistanceKm(ctx, from, to)

	sctx, scancel := context.WithTimeout(ctx, e.timeout)
	defer scancel()
	_ = e.rdb.Set(sctx, key, strconv.FormatFloat(km, 'f', 3, 64), e.ttl).Err()

	return km
}

func cacheKey(from, to Location) string {
	a, b := locKey(from), locKey(to)
	if a > b {
		a, b = b, a
	}
	return "organlink:dist:" + a + "|" + b
}

func locKey(l Location) string {
	if l.HasCoords() {
		return fmt.Sprintf("%.4f,%.4f", *l.Lat, *l.Lng)
	}
	return normalize(l.Text)
}
