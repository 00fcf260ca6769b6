package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/internal/s4_contract"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/metrics"
)

// =============================================================================
// Engine - 실행 단계 (계약 → 실시간 재검증 → 알림 + 기록)
// =============================================================================

// Result summarizes one execution run
type Result struct {
	RunID      string                     `json:"run_id"`
	ContractID string                     `json:"contract_id"`
	Loaded     int                        `json:"loaded"`
	Setups     []contracts.ExecutionSetup `json:"setups"`
	Rejected   []Rejection                `json:"rejected,omitempty"`
	Shown      int                        `json:"shown"`
	Hidden     int                        `json:"hidden"`
	Gate       GateResult                 `json:"gate"`
	Message    string                     `json:"-"`
}

// Engine runs the execution stage
// ⭐ SSOT: EX 단계 흐름은 여기서만
type Engine struct {
	reader   *s4_contract.Reader
	prices   contracts.PriceProvider
	refiner  *Refiner
	gate     *Gate
	store    contracts.RecordStore
	notifier contracts.Notifier
	cal      *market.Calendar
	cfg      strategyconfig.Execution
	workers  int
	logger   *logger.Logger
}

// NewEngine creates the execution engine
func NewEngine(
	reader *s4_contract.Reader,
	prices contracts.PriceProvider,
	store contracts.RecordStore,
	notifier contracts.Notifier,
	cal *market.Calendar,
	cfg *strategyconfig.Config,
	log *logger.Logger,
) *Engine {
	return &Engine{
		reader:   reader,
		prices:   prices,
		refiner:  NewRefiner(cfg.Execution, cfg.Scoring, log),
		gate:     NewGate(log),
		store:    store,
		notifier: notifier,
		cal:      cal,
		cfg:      cfg.Execution,
		workers:  cfg.Universe.Workers,
		logger:   log.WithModule("execution"),
	}
}

// Run loads the contract, refines every candidate against live bars,
// notifies the shown setups and persists all refined setups through the
// idempotency gate. A missing or corrupt contract is returned as an error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	defer metrics.ObserveStage(string(contracts.StageExecution), start)

	now := e.cal.Now()
	result := &Result{RunID: e.cal.RunID(now)}
	log := e.logger.WithField("run_id", result.RunID)

	contract, err := e.reader.Load()
	if err != nil {
		return result, fmt.Errorf("load contract: %w", err)
	}
	result.ContractID = contract.Meta.ContractID
	result.Loaded = len(contract.Universe)

	if len(contract.Universe) == 0 {
		log.Info("Contract has no candidates")
		return result, nil
	}

	live, err := e.fetchLive(ctx, contract.Universe)
	if err != nil {
		return result, err
	}

	setups, rejected := e.refiner.Refine(contract, live)
	result.Setups = setups
	result.Rejected = rejected

	if len(setups) == 0 {
		log.Info("No setups passed live refinement")
		return result, nil
	}

	shown, hidden := Throttle(setups, e.refiner.MaxDisplay(contract.Meta.KillSwitch))
	result.Shown = len(shown)
	result.Hidden = hidden

	result.Message = FormatMessage(MessageInput{
		RunID:          result.RunID,
		At:             now,
		KillSwitch:     contract.Meta.KillSwitch,
		Protocol:       contract.Meta.Protocol,
		Shown:          shown,
		Hidden:         hidden,
		HighConviction: e.cfg.HighConviction,
	})
	if err := e.notifier.Send(ctx, result.Message); err != nil {
		log.WithError(err).Warn("Notification failed")
	}

	records := make([]contracts.ExecutionRecord, len(setups))
	date := e.cal.DateString(now)
	for i, s := range setups {
		records[i] = contracts.ExecutionRecord{
			Date:        date,
			Symbol:      s.Symbol,
			Score:       s.Score,
			Price:       s.Price,
			StopLoss:    s.StopLoss,
			Target:      s.Target,
			Sector:      s.Sector,
			DeliveryPct: s.DeliveryPct,
			Protocol:    s.Protocol,
			RunID:       result.RunID,
		}
	}

	gate, err := e.gate.Apply(ctx, e.store, records)
	result.Gate = gate
	if err != nil {
		return result, err
	}

	log.WithFields(map[string]interface{}{
		"loaded":      result.Loaded,
		"refined":     len(setups),
		"shown":       result.Shown,
		"hidden":      result.Hidden,
		"appended":    gate.Appended,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Execution run complete")

	return result, nil
}

// fetchLive fetches live bars for every candidate; failures are logged
// and left out of the map
func (e *Engine) fetchLive(ctx context.Context, universe []contracts.Candidate) (map[string]*contracts.PriceSeries, error) {
	live := make(map[string]*contracts.PriceSeries, len(universe))
	var mu sync.Mutex

	workers := e.workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range universe {
		symbol := c.Symbol
		g.Go(func() error {
			series, err := e.prices.FetchHistory(gctx, symbol, e.cfg.HistoryPeriod)
			if err != nil {
				e.logger.WithError(err).WithField("symbol", symbol).Debug("Live fetch failed")
				return nil
			}
			mu.Lock()
			live[symbol] = series
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return live, nil
}
