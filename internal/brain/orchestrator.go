package brain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wonny/diamond/internal/audit"
	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/fundamentals"
	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/internal/s0_guard"
	"github.com/wonny/diamond/internal/s1_universe"
	"github.com/wonny/diamond/internal/s2_regime"
	"github.com/wonny/diamond/internal/s3_scoring"
	"github.com/wonny/diamond/internal/s4_contract"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/metrics"
)

// ErrBreakerTripped is returned when the failure rate aborts the run
var ErrBreakerTripped = errors.New("circuit breaker tripped")

// Ports are the external collaborators of the strategy stage
type Ports struct {
	Prices       contracts.PriceProvider
	Universe     contracts.UniverseProvider
	Delivery     contracts.DeliveryProvider
	Fundamentals contracts.FundamentalsProvider
	Cache        fundamentals.Cache
	Notifier     contracts.Notifier

	// DeliveryCache is optional (redis)
	DeliveryCache s1_universe.DeliveryCache
}

// Orchestrator coordinates the strategy pipeline
// S0 probe → S1 collect → S0 breaker → S2 regime → S3 scoring → S4 contract
// ⭐ SSOT: 전략 파이프라인 조율은 여기서만
type Orchestrator struct {
	// Stage components
	probe        *s0_guard.HealthProbe
	quarantine   *s0_guard.Quarantine
	breaker      *s0_guard.Breaker
	collector    *s1_universe.Collector
	delivery     *s1_universe.DeliveryReader
	marketCtx    *s1_universe.MarketContextReader
	fundamentals *fundamentals.Service
	regime       *s2_regime.Engine
	scorer       *s3_scoring.Engine
	writer       *s4_contract.Writer

	// Append-only logs
	journal *audit.Journal
	trail   *audit.Trail

	notifier     contracts.Notifier
	cal          *market.Calendar
	cfg          *strategyconfig.Config
	snapshot     *strategyconfig.DecisionSnapshot
	snapshotPath string
	logger       *logger.Logger
}

// RunResult holds the results of one strategy run
type RunResult struct {
	RunID           string                     `json:"run_id"`
	Date            time.Time                  `json:"date"`
	Outcome         contracts.Outcome          `json:"outcome"`
	CompletedStages []string                   `json:"completed_stages"`
	Stages          []contracts.PipelineResult `json:"stages"`
	Decision        *s0_guard.Decision         `json:"decision,omitempty"`
	Universe        *contracts.Universe        `json:"universe,omitempty"`
	Market          contracts.MarketContext    `json:"market"`
	Regime          *contracts.Regime          `json:"regime,omitempty"`
	Scored          int                        `json:"scored"`
	Rejected        int                        `json:"rejected"`
	Jailed          int                        `json:"jailed"`
	Contract        *contracts.SignalContract  `json:"contract,omitempty"`
	Duration        time.Duration              `json:"duration"`
}

// NewOrchestrator wires every stage from the ports and strategy config.
// File names in cfg are resolved against dataDir. snapshot identifies the
// config every contract is written under.
func NewOrchestrator(
	ports Ports,
	quarantine *s0_guard.Quarantine,
	cal *market.Calendar,
	cfg *strategyconfig.Config,
	snapshot *strategyconfig.DecisionSnapshot,
	dataDir string,
	log *logger.Logger,
) *Orchestrator {
	delivery := s1_universe.NewDeliveryReader(ports.Delivery, cal, cfg.Delivery.LookbackDays, log)
	if ports.DeliveryCache != nil {
		delivery.WithCache(ports.DeliveryCache)
	}

	var snapshotPath string
	if cfg.Contract.SnapshotFile != "" {
		snapshotPath = filepath.Join(dataDir, cfg.Contract.SnapshotFile)
	}

	return &Orchestrator{
		probe:        s0_guard.NewHealthProbe(ports.Prices, cfg.Guard.HealthProbe, log),
		quarantine:   quarantine,
		breaker:      s0_guard.NewBreaker(cfg.Guard.Breaker),
		collector:    s1_universe.NewCollector(ports.Universe, ports.Prices, quarantine, cal, cfg.Universe, log),
		delivery:     delivery,
		marketCtx:    s1_universe.NewMarketContextReader(ports.Prices, cfg.Market.IndexSymbol, log),
		fundamentals: fundamentals.NewService(ports.Fundamentals, ports.Cache, cfg.Fundamentals, cfg.Universe.Workers, log),
		regime:       s2_regime.NewEngine(cfg.Regime, log),
		scorer:       s3_scoring.NewEngine(cfg.Scoring, log),
		writer:       s4_contract.NewWriter(filepath.Join(dataDir, cfg.Contract.File), cfg.Contract.TopN, log),
		journal:      audit.NewJournal(filepath.Join(dataDir, cfg.Regime.JournalFile), log),
		trail:        audit.NewTrail(filepath.Join(dataDir, cfg.Scoring.AuditFile), log),
		notifier:     ports.Notifier,
		cal:          cal,
		cfg:          cfg,
		snapshot:     snapshot,
		snapshotPath: snapshotPath,
		logger:       log.WithModule("brain"),
	}
}

// Fundamentals exposes the fundamentals service (tests tune its clock and sleep)
func (o *Orchestrator) Fundamentals() *fundamentals.Service {
	return o.fundamentals
}

// Run executes one strategy run. A failed health probe or a tripped
// breaker ends the run without writing a contract; only the breaker alerts.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	startTime := time.Now()
	now := o.cal.Now()

	result := &RunResult{
		RunID:           o.cal.RunID(now),
		Date:            market.DateOf(now),
		CompletedStages: make([]string, 0, 6),
		Stages:          make([]contracts.PipelineResult, 0, 6),
	}
	defer func() { result.Duration = time.Since(startTime) }()

	log := o.logger.WithField("run_id", result.RunID)
	log.WithFields(map[string]interface{}{
		"strategy_id": o.snapshot.StrategyID,
		"config_hash": o.snapshot.ConfigHash,
	}).Info("Starting strategy run")

	// S0: Pre-flight probe (조용한 중단)
	stageStart := time.Now()
	if !o.probe.Probe(ctx) {
		result.Outcome = contracts.OutcomeProbeFailed
		o.record(result, contracts.StageGuard, "Probe", contracts.OutcomeProbeFailed, 1, 0, stageStart, nil)
		log.Warn("Health probe failed, aborting strategy run silently")
		return result, nil
	}
	o.record(result, contracts.StageGuard, "Probe", contracts.OutcomeCompleted, 1, 1, stageStart, nil)

	// S1: Universe collection
	stageStart = time.Now()
	universe, err := o.collector.Collect(ctx)
	if err != nil {
		o.fail(result, contracts.StageUniverse, "Universe", stageStart, err)
		return result, fmt.Errorf("S1 failed: %w", err)
	}
	result.Universe = universe
	fetched := universe.Fetched()
	o.record(result, contracts.StageUniverse, "Universe", contracts.OutcomeCompleted, universe.Attempted, len(fetched), stageStart, nil)

	// S0: Circuit breaker (수집 완료 후 판단)
	stageStart = time.Now()
	decision := o.breaker.EvaluateUniverse(universe)
	result.Decision = &decision
	if decision.Abort() {
		result.Outcome = contracts.OutcomeBreakerTripped
		o.record(result, contracts.StageGuard, "Breaker", contracts.OutcomeBreakerTripped, decision.Attempted, 0, stageStart,
			map[string]interface{}{"failure_rate": decision.FailureRate})
		metrics.BreakerTrips.WithLabelValues("failure_rate").Inc()
		log.WithFields(map[string]interface{}{
			"failure_rate": decision.FailureRate,
			"failed":       decision.Failed,
			"attempted":    decision.Attempted,
		}).Error("Circuit breaker tripped, no contract written")
		o.alert(ctx, fmt.Sprintf("🚨 <b>DIAMOND ABORT</b>\nData failure rate %s exceeds limit. No contract written.", decision.Summary()))
		return result, fmt.Errorf("%w: %s", ErrBreakerTripped, decision.Summary())
	}
	o.record(result, contracts.StageGuard, "Breaker", contracts.OutcomeCompleted, decision.Attempted, len(fetched), stageStart,
		map[string]interface{}{"action": string(decision.Action)})

	if o.cfg.Guard.Quarantine.AutoJail {
		result.Jailed = s1_universe.JailDataFailures(o.quarantine, universe, log)
	}

	funds, err := o.fundamentals.Resolve(ctx, fetched, decision.RefreshFundamentals())
	if err != nil {
		return result, fmt.Errorf("fundamentals: %w", err)
	}
	delivery := o.delivery.Read(ctx)
	result.Market = o.marketCtx.Read(ctx)

	// S2: Sector regime
	stageStart = time.Now()
	regime := o.regime.Compute(s2_regime.Inputs(universe, funds, o.cfg.Regime.PerfLookback))
	result.Regime = regime
	if err := o.journal.Record(now, regime); err != nil {
		o.fail(result, contracts.StageRegime, "Regime", stageStart, err)
		return result, fmt.Errorf("S2 journal: %w", err)
	}
	o.record(result, contracts.StageRegime, "Regime", contracts.OutcomeCompleted, len(fetched), len(regime.Ranked), stageStart, nil)

	// S3: Scoring
	stageStart = time.Now()
	passed, rejections := o.score(universe, fetched, funds, delivery, regime, result)
	result.Rejected = len(rejections)
	if len(rejections) > 0 {
		if err := o.trail.Record(rejections); err != nil {
			o.fail(result, contracts.StageScoring, "Scoring", stageStart, err)
			return result, fmt.Errorf("S3 audit: %w", err)
		}
	}
	o.record(result, contracts.StageScoring, "Scoring", contracts.OutcomeCompleted, len(fetched), len(passed), stageStart, nil)

	// S4: Contract
	stageStart = time.Now()
	meta := contracts.ContractMeta{
		Trend:         result.Market.Trend,
		Dispersion:    regime.Dispersion,
		KillSwitch:    regime.KillSwitch,
		Protocol:      regime.Protocol,
		Timestamp:     now,
		StrategyID:    o.snapshot.StrategyID,
		ConfigHash:    o.snapshot.ConfigHash,
		MarketPerf10d: result.Market.Perf10d,
		SectorLeader:  regime.Leader(),
	}
	contract, err := o.writer.Write(meta, passed)
	if err != nil {
		o.fail(result, contracts.StageContract, "Contract", stageStart, err)
		return result, fmt.Errorf("S4 failed: %w", err)
	}
	result.Contract = contract
	result.Outcome = contracts.OutcomeCompleted
	o.saveSnapshot(log)
	o.record(result, contracts.StageContract, "Contract", contracts.OutcomeCompleted, len(passed), contract.Count, stageStart,
		map[string]interface{}{"contract_id": contract.Meta.ContractID})

	log.WithFields(map[string]interface{}{
		"fetched":     len(fetched),
		"scored":      result.Scored,
		"passed":      len(passed),
		"published":   contract.Count,
		"kill_switch": regime.KillSwitch,
		"dispersion":  regime.Dispersion,
		"jailed":      result.Jailed,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Strategy run complete")

	return result, nil
}

// record appends one stage result; completed stages are also listed as "S0:Probe" style labels
func (o *Orchestrator) record(
	result *RunResult,
	stage contracts.Stage,
	step string,
	outcome contracts.Outcome,
	in, out int,
	start time.Time,
	meta map[string]interface{},
) {
	pr := contracts.PipelineResult{
		Stage:       stage,
		Step:        step,
		Outcome:     outcome,
		InputCount:  in,
		OutputCount: out,
		Duration:    time.Since(start).Milliseconds(),
		Metadata:    meta,
	}
	result.Stages = append(result.Stages, pr)
	if pr.Success() {
		result.CompletedStages = append(result.CompletedStages, pr.Label())
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"stage":       pr.Label(),
		"description": stage.Description(),
		"outcome":     string(outcome),
		"input":       in,
		"output":      out,
		"duration_ms": pr.Duration,
	}).Debug("Stage finished")
}

// fail records a stage that ended with an error
func (o *Orchestrator) fail(result *RunResult, stage contracts.Stage, step string, start time.Time, err error) {
	o.record(result, stage, step, contracts.OutcomeFailed, 0, 0, start, nil)
	result.Stages[len(result.Stages)-1].Error = err.Error()
}

// saveSnapshot stores the config the contract was written under.
// Failure is logged; the contract is already committed.
func (o *Orchestrator) saveSnapshot(log *logger.Logger) {
	if o.snapshotPath == "" {
		return
	}
	if err := fileutil.WriteJSONAtomic(o.snapshotPath, o.snapshot); err != nil {
		log.WithError(err).Warn("Config snapshot write failed")
	}
}

// score runs S3 over every fetched symbol. Indicator failures are jailed
// when auto-jail is on; sub-threshold scores become audit rejections.
func (o *Orchestrator) score(
	universe *contracts.Universe,
	symbols []string,
	funds map[string]*contracts.Fundamentals,
	delivery map[string]float64,
	regime *contracts.Regime,
	result *RunResult,
) ([]contracts.Candidate, []audit.Rejection) {
	start := time.Now()
	defer metrics.ObserveStage(string(contracts.StageScoring), start)

	at := o.cal.Now()
	passed := make([]contracts.Candidate, 0, len(symbols))
	var rejections []audit.Rejection

	for _, symbol := range symbols {
		c, err := o.scorer.Score(s3_scoring.Input{
			Symbol:        symbol,
			Series:        universe.Series[symbol],
			DeliveryPct:   s3_scoring.DeliveryFor(delivery, symbol, o.cfg.Delivery.DefaultPct),
			Fundamentals:  funds[symbol],
			Regime:        regime,
			MarketPerf10d: result.Market.Perf10d,
		})
		if err != nil {
			se := contracts.AsSymbolError(symbol, err)
			o.logger.WithError(err).WithField("symbol", symbol).Debug("Symbol skipped")
			if se.Kind == contracts.KindIndicator && o.cfg.Guard.Quarantine.AutoJail {
				if jerr := o.quarantine.Add(symbol, string(se.Kind)); jerr != nil {
					o.logger.WithError(jerr).WithField("symbol", symbol).Warn("Quarantine persist failed")
				}
				result.Jailed++
			}
			continue
		}

		result.Scored++
		if !o.scorer.Passes(c.Score) {
			rejections = append(rejections, audit.Rejected(*c, at))
			continue
		}
		passed = append(passed, *c)
	}

	metrics.QuarantineSize.Set(float64(o.quarantine.Size()))
	return passed, rejections
}

// alert is best effort; notifier failures are logged and swallowed
func (o *Orchestrator) alert(ctx context.Context, text string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Send(ctx, text); err != nil {
		o.logger.WithError(err).Warn("Alert delivery failed")
	}
}
