package strategyconfig

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Market ===
	if _, err := time.LoadLocation(cfg.Market.Timezone); err != nil {
		return ValidationError{"market.timezone", err.Error()}
	}
	if cfg.Market.IndexSymbol == "" {
		return ValidationError{"market.index_symbol", "required"}
	}
	if err := validateHHMM(cfg.Market.StrategyRunTime); err != nil {
		return ValidationError{"market.strategy_run_time", err.Error()}
	}
	if err := validateHHMM(cfg.Market.Session.Start); err != nil {
		return ValidationError{"market.session.start", err.Error()}
	}
	if err := validateHHMM(cfg.Market.Session.End); err != nil {
		return ValidationError{"market.session.end", err.Error()}
	}
	startTime, _ := time.Parse("15:04", cfg.Market.Session.Start)
	endTime, _ := time.Parse("15:04", cfg.Market.Session.End)
	if !startTime.Before(endTime) {
		return ValidationError{"market.session", "start must be before end"}
	}
	for i, d := range cfg.Market.Holidays {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return ValidationError{fmt.Sprintf("market.holidays[%d]", i), "must be YYYY-MM-DD"}
		}
	}

	// === Guard ===
	if cfg.Guard.HealthProbe.Enabled {
		if cfg.Guard.HealthProbe.Symbol == "" {
			return ValidationError{"guard.health_probe.symbol", "required when enabled"}
		}
		if cfg.Guard.HealthProbe.MinRows < 1 {
			return ValidationError{"guard.health_probe.min_rows", "must be >= 1"}
		}
	}
	if cfg.Guard.Quarantine.Days < 1 {
		return ValidationError{"guard.quarantine.days", "must be >= 1"}
	}
	b := cfg.Guard.Breaker
	if err := validatePctRange(b.MaxFailureRate, "guard.breaker.max_failure_rate"); err != nil {
		return err
	}
	if err := validatePctRange(b.FundamentalAbort, "guard.breaker.fundamental_abort"); err != nil {
		return err
	}
	if b.FundamentalAbort > b.MaxFailureRate {
		return ValidationError{"guard.breaker", "fundamental_abort must be <= max_failure_rate"}
	}

	// === Universe ===
	if cfg.Universe.Workers < 1 || cfg.Universe.Workers > 16 {
		return ValidationError{"universe.workers", "must be in [1, 16]"}
	}
	if cfg.Universe.RequestsPerSec <= 0 {
		return ValidationError{"universe.requests_per_sec", "must be > 0"}
	}
	if cfg.Universe.MinFetchBars < 1 {
		return ValidationError{"universe.min_fetch_bars", "must be >= 1"}
	}

	// === Fundamentals / Delivery ===
	if cfg.Fundamentals.MaxAgeDays < 1 {
		return ValidationError{"fundamentals.max_age_days", "must be >= 1"}
	}
	if cfg.Fundamentals.ChunkSize < 1 {
		return ValidationError{"fundamentals.chunk_size", "must be >= 1"}
	}
	if cfg.Delivery.LookbackDays < 1 {
		return ValidationError{"delivery.lookback_days", "must be >= 1"}
	}
	if cfg.Delivery.DefaultPct < 0 || cfg.Delivery.DefaultPct > 100 {
		return ValidationError{"delivery.default_pct", "must be in [0, 100]"}
	}

	// === Regime ===
	if cfg.Regime.MinSectorSize < 1 {
		return ValidationError{"regime.min_sector_size", "must be >= 1"}
	}
	if cfg.Regime.DispersionThreshold < 0 {
		return ValidationError{"regime.dispersion_threshold", "must be >= 0"}
	}
	if cfg.Regime.PerfLookback < 1 {
		return ValidationError{"regime.perf_lookback", "must be >= 1"}
	}

	// === Scoring ===
	s := cfg.Scoring
	if s.WeightsPct.Sum() != 100 {
		return ValidationError{"scoring.weights_pct", fmt.Sprintf("must sum to 100, got %d", s.WeightsPct.Sum())}
	}
	if s.MinBars < cfg.Regime.PerfLookback+1 {
		return ValidationError{"scoring.min_bars", "must exceed regime.perf_lookback"}
	}
	if s.Threshold < 0 || s.Threshold > 100 {
		return ValidationError{"scoring.threshold", "must be in [0, 100]"}
	}
	if s.StopATRMult <= 0 || s.TargetATRMult <= 0 {
		return ValidationError{"scoring", "stop_atr_mult and target_atr_mult must be > 0"}
	}
	if s.DeliveryFullPct <= 0 {
		return ValidationError{"scoring.delivery_full_pct", "must be > 0"}
	}

	// === Contract ===
	if cfg.Contract.TopN < 1 {
		return ValidationError{"contract.top_n", "must be >= 1"}
	}
	if cfg.Contract.File == "" {
		return ValidationError{"contract.file", "required"}
	}

	// === Execution ===
	e := cfg.Execution
	if e.MinBars < 1 {
		return ValidationError{"execution.min_bars", "must be >= 1"}
	}
	if e.MinInterval <= 0 {
		return ValidationError{"execution.min_interval", "must be > 0"}
	}
	if e.MaxDisplayKill < 1 || e.MaxDisplayKill > e.MaxDisplayNormal {
		return ValidationError{"execution", "must satisfy 1 <= max_display_kill <= max_display_normal"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if !cfg.Guard.HealthProbe.Enabled {
		warnings = append(warnings, Warning{
			Code:    "PROBE_DISABLED",
			Message: "health probe off: upstream outages surface as breaker trips",
		})
	}

	if cfg.Universe.Workers > 8 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_WORKERS",
			Message: "workers > 8: upstream throttling/ban risk",
		})
	}

	if cfg.Execution.MinInterval < 5*time.Minute {
		warnings = append(warnings, Warning{
			Code:    "FAST_EXECUTION",
			Message: "execution interval < 5m",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateHHMM(s string) error {
	if !hhmm.MatchString(s) {
		return errors.New("must be HH:MM format")
	}
	_, err := time.Parse("15:04", s)
	return err
}

// validatePctRange는 비율 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
