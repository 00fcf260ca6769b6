package s1_universe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/internal/s0_guard"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/metrics"
)

// Collector fetches the universe list and per-symbol history
// ⭐ SSOT: S1 수집 (격리 필터 → 병렬 수집 → 실패 분류)
type Collector struct {
	universe   contracts.UniverseProvider
	prices     contracts.PriceProvider
	quarantine *s0_guard.Quarantine
	cal        *market.Calendar
	cfg        strategyconfig.Universe
	logger     *logger.Logger
}

// NewCollector creates a new universe collector
func NewCollector(
	universe contracts.UniverseProvider,
	prices contracts.PriceProvider,
	quarantine *s0_guard.Quarantine,
	cal *market.Calendar,
	cfg strategyconfig.Universe,
	log *logger.Logger,
) *Collector {
	return &Collector{
		universe:   universe,
		prices:     prices,
		quarantine: quarantine,
		cal:        cal,
		cfg:        cfg,
		logger:     log.WithModule("s1_universe"),
	}
}

// Collect fetches the constituents, drops quarantined symbols and fetches
// history for the rest with at most cfg.Workers requests in flight.
// Per-symbol failures are recorded on the Universe; only a failed list
// download or a cancelled context is returned as an error.
func (c *Collector) Collect(ctx context.Context) (*contracts.Universe, error) {
	start := time.Now()
	defer metrics.ObserveStage(string(contracts.StageUniverse), start)

	symbols, err := c.universe.FetchUniverse(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}

	kept, jailed := c.quarantine.Filter(symbols)
	metrics.QuarantineSize.Set(float64(c.quarantine.Size()))

	u := &contracts.Universe{
		Date:        c.cal.Today(),
		Symbols:     kept,
		Quarantined: jailed,
		Series:      make(map[string]*contracts.PriceSeries, len(kept)),
		Failures:    make(map[string]*contracts.SymbolError),
		Attempted:   len(kept),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())

	for _, symbol := range kept {
		symbol := symbol
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			series, ferr := c.fetchOne(gctx, symbol)

			mu.Lock()
			defer mu.Unlock()
			if ferr != nil {
				u.Failures[symbol] = ferr
				metrics.FetchTotal.WithLabelValues(string(ferr.Kind)).Inc()
				return nil
			}
			u.Series[symbol] = series
			metrics.FetchTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect history: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"listed":      len(symbols),
		"quarantined": len(jailed),
		"attempted":   u.Attempted,
		"fetched":     len(u.Series),
		"failed":      u.FailedCount(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Universe collected")

	return u, nil
}

// fetchOne fetches one symbol and classifies any failure
func (c *Collector) fetchOne(ctx context.Context, symbol string) (*contracts.PriceSeries, *contracts.SymbolError) {
	series, err := c.prices.FetchHistory(ctx, symbol, c.cfg.HistoryPeriod)
	if err != nil {
		return nil, contracts.AsSymbolError(symbol, err)
	}
	if series.Len() == 0 {
		return nil, contracts.NewSymbolError(symbol, contracts.KindEmpty, contracts.ErrNoData)
	}
	if series.Len() < c.cfg.MinFetchBars {
		return nil, contracts.NewSymbolError(symbol, contracts.KindInsufficient,
			fmt.Errorf("%d bars < %d", series.Len(), c.cfg.MinFetchBars))
	}
	return series, nil
}

func (c *Collector) workers() int {
	if c.cfg.Workers < 1 {
		return 1
	}
	return c.cfg.Workers
}

// JailDataFailures quarantines symbols whose failure reflects bad data.
// Upstream (fetch) failures are never jailed. Persistence errors are
// logged and do not stop the loop. Returns the number of symbols jailed.
func JailDataFailures(q *s0_guard.Quarantine, u *contracts.Universe, log *logger.Logger) int {
	jailed := 0
	for _, symbol := range u.Symbols {
		f, ok := u.Failures[symbol]
		if !ok || !f.IsDataQuality() {
			continue
		}
		if err := q.Add(symbol, string(f.Kind)); err != nil {
			log.WithError(err).WithField("symbol", symbol).Warn("Quarantine persist failed")
		}
		jailed++
	}
	metrics.QuarantineSize.Set(float64(q.Size()))
	return jailed
}
