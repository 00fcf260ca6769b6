package s1_universe

import (
	"context"
	"time"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/redis"
)

// DeliveryCache stores one trading day's delivery table (pkg/redis.Cache)
type DeliveryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DeliveryReader loads the most recent available delivery percentages
type DeliveryReader struct {
	provider contracts.DeliveryProvider
	cache    DeliveryCache // optional
	cal      *market.Calendar
	lookback int
	logger   *logger.Logger
}

// NewDeliveryReader creates a reader that tries up to lookback calendar days
func NewDeliveryReader(provider contracts.DeliveryProvider, cal *market.Calendar, lookback int, log *logger.Logger) *DeliveryReader {
	return &DeliveryReader{
		provider: provider,
		cal:      cal,
		lookback: lookback,
		logger:   log.WithModule("delivery"),
	}
}

// WithCache serves published days from cache before downloading them
func (r *DeliveryReader) WithCache(cache DeliveryCache) *DeliveryReader {
	r.cache = cache
	return r
}

// Read returns the first trading day's data that loads, newest first.
// An empty map is returned when every day fails.
func (r *DeliveryReader) Read(ctx context.Context) map[string]float64 {
	for _, day := range r.cal.RecentTradingDays(r.cal.Now(), r.lookback) {
		date := r.cal.DateString(day)
		if data := r.cached(ctx, date); len(data) > 0 {
			r.logger.WithFields(map[string]interface{}{
				"date":    date,
				"symbols": len(data),
			}).Debug("Delivery data from cache")
			return data
		}

		data, err := r.provider.FetchDelivery(ctx, day)
		if err != nil {
			r.logger.WithError(err).WithField("date", date).Debug("Delivery not available")
			continue
		}
		if len(data) > 0 {
			r.store(ctx, date, data)
			r.logger.WithFields(map[string]interface{}{
				"date":    date,
				"symbols": len(data),
			}).Info("Delivery data loaded")
			return data
		}
	}

	r.logger.Warn("No delivery data in lookback window, using defaults")
	return map[string]float64{}
}

// cached is best effort; cache errors fall through to the download
func (r *DeliveryReader) cached(ctx context.Context, date string) map[string]float64 {
	if r.cache == nil {
		return nil
	}
	var data map[string]float64
	found, err := r.cache.Get(ctx, redis.DeliveryKey(date), &data)
	if err != nil {
		r.logger.WithError(err).WithField("date", date).Warn("Delivery cache read failed")
		return nil
	}
	if !found {
		return nil
	}
	return data
}

func (r *DeliveryReader) store(ctx context.Context, date string, data map[string]float64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, redis.DeliveryKey(date), data, redis.TTLDaily); err != nil {
		r.logger.WithError(err).WithField("date", date).Warn("Delivery cache write failed")
	}
}
