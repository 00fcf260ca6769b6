package s1_universe

import (
	"context"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/logger"
)

const (
	indexPeriod   = "6mo"
	trendEMA      = 50
	trendBand     = 0.01
	indexPerfBars = 10
)

// MarketContextReader derives the index backdrop
type MarketContextReader struct {
	prices contracts.PriceProvider
	symbol string
	logger *logger.Logger
}

// NewMarketContextReader creates a reader for the index symbol (e.g. ^NSEI)
func NewMarketContextReader(prices contracts.PriceProvider, indexSymbol string, log *logger.Logger) *MarketContextReader {
	return &MarketContextReader{
		prices: prices,
		symbol: indexSymbol,
		logger: log.WithModule("market_context"),
	}
}

// Read fetches the index and classifies it; any failure falls back to
// NEUTRAL with a flat 10-day return.
func (r *MarketContextReader) Read(ctx context.Context) contracts.MarketContext {
	fallback := contracts.MarketContext{Trend: contracts.TrendNeutral}

	series, err := r.prices.FetchHistory(ctx, r.symbol, indexPeriod)
	if err != nil {
		r.logger.WithError(err).Warn("Index fetch failed, using neutral context")
		return fallback
	}

	mc := ClassifyMarket(series)
	r.logger.WithFields(map[string]interface{}{
		"trend":    mc.Trend,
		"perf_10d": mc.Perf10d,
	}).Info("Market context")
	return mc
}

// ClassifyMarket computes trend (close vs EMA50 ±1%) and the 10-day return
func ClassifyMarket(series *contracts.PriceSeries) contracts.MarketContext {
	mc := contracts.MarketContext{Trend: contracts.TrendNeutral}
	if series.Len() == 0 {
		return mc
	}

	if perf, ok := series.PerfOver(indexPerfBars); ok {
		mc.Perf10d = perf
	}

	if series.Len() < trendEMA {
		return mc
	}
	ema := talib.Ema(series.Closes(), trendEMA)
	last := ema[len(ema)-1]
	if last <= 0 || math.IsNaN(last) {
		return mc
	}

	price := series.LastClose()
	switch {
	case price > last*(1+trendBand):
		mc.Trend = contracts.TrendBull
	case price < last*(1-trendBand):
		mc.Trend = contracts.TrendBear
	}
	return mc
}
