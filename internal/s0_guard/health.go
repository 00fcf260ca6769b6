package s0_guard

import (
	"context"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
)

// HealthProbe is the pre-flight liveness gate for the price source.
// It issues one single-symbol fetch; a failure aborts the stage without alerting.
type HealthProbe struct {
	provider contracts.PriceProvider
	cfg      strategyconfig.HealthProbe
	logger   *logger.Logger
}

// NewHealthProbe creates a HealthProbe
func NewHealthProbe(provider contracts.PriceProvider, cfg strategyconfig.HealthProbe, log *logger.Logger) *HealthProbe {
	return &HealthProbe{
		provider: provider,
		cfg:      cfg,
		logger:   log.WithModule("health_probe"),
	}
}

// Probe returns false on fetch error, no rows, or fewer than min_rows bars.
// A disabled probe always passes.
func (h *HealthProbe) Probe(ctx context.Context) bool {
	if !h.cfg.Enabled {
		return true
	}

	series, err := h.provider.FetchHistory(ctx, h.cfg.Symbol, h.cfg.Period)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", h.cfg.Symbol).Warn("Health probe failed")
		return false
	}

	if series.Len() < h.cfg.MinRows {
		h.logger.WithFields(map[string]interface{}{
			"symbol": h.cfg.Symbol,
			"rows":   series.Len(),
		}).Warn("Health probe returned too few rows")
		return false
	}

	h.logger.WithField("rows", series.Len()).Debug("Health probe passed")
	return true
}
