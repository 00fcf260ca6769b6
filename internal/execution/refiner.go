package execution

import (
	"sort"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/indicator"
	"github.com/wonny/diamond/internal/s3_scoring"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
)

// =============================================================================
// Refiner - 계약 후보의 실시간 재검증
// =============================================================================

// Refinement rejection reasons
const (
	RejectNoData       = "no live data"
	RejectInsufficient = "insufficient bars"
	RejectIndicator    = "indicator undefined"
	RejectBelowEMA50   = "below ema50"
)

// Rejection is one contract candidate that failed refinement
type Rejection struct {
	Symbol string `json:"symbol"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Refiner re-validates contract candidates against live prices
// ⭐ SSOT: 실행 단계 재검증 (계약의 가격/손절/목표는 재사용하지 않음)
type Refiner struct {
	cfg        strategyconfig.Execution
	stopMult   float64
	targetMult float64
	logger     *logger.Logger
}

// NewRefiner creates a refiner; stop/target multiples come from scoring
func NewRefiner(cfg strategyconfig.Execution, scoring strategyconfig.Scoring, log *logger.Logger) *Refiner {
	return &Refiner{
		cfg:        cfg,
		stopMult:   scoring.StopATRMult,
		targetMult: scoring.TargetATRMult,
		logger:     log.WithModule("refiner"),
	}
}

// Refine recomputes price, stop and target for every candidate that has
// enough live bars, a defined ATR and a live price at or above EMA50.
// Setups come back sorted by the original contract score.
func (r *Refiner) Refine(contract *contracts.SignalContract, live map[string]*contracts.PriceSeries) ([]contracts.ExecutionSetup, []Rejection) {
	setups := make([]contracts.ExecutionSetup, 0, len(contract.Universe))
	var rejected []Rejection

	for _, c := range contract.Universe {
		setup, reason := r.refineOne(c, live[c.Symbol], contract.Meta.Protocol)
		if reason != "" {
			rejected = append(rejected, Rejection{Symbol: c.Symbol, Score: c.Score, Reason: reason})
			continue
		}
		setups = append(setups, setup)
	}

	SortSetups(setups)

	r.logger.WithFields(map[string]interface{}{
		"candidates": len(contract.Universe),
		"refined":    len(setups),
		"rejected":   len(rejected),
	}).Info("Refinement complete")

	return setups, rejected
}

func (r *Refiner) refineOne(c contracts.Candidate, series *contracts.PriceSeries, protocol contracts.Protocol) (contracts.ExecutionSetup, string) {
	if series.Len() == 0 {
		return contracts.ExecutionSetup{}, RejectNoData
	}
	if series.Len() < r.cfg.MinBars {
		return contracts.ExecutionSetup{}, RejectInsufficient
	}

	closes := series.Closes()
	ema50, okEMA := indicator.EMA(closes, 50)
	atr, okATR := indicator.ATR(series.Highs(), series.Lows(), closes, 14)
	if !okEMA || !okATR {
		return contracts.ExecutionSetup{}, RejectIndicator
	}

	price := series.LastClose()
	if price < ema50 {
		return contracts.ExecutionSetup{}, RejectBelowEMA50
	}

	sector := c.Sector
	if sector == "" {
		sector = contracts.UnknownSector
	}

	return contracts.ExecutionSetup{
		Symbol:      c.Symbol,
		Score:       c.Score,
		Price:       price,
		StopLoss:    s3_scoring.Round1(price - r.stopMult*atr),
		Target:      s3_scoring.Round1(price + r.targetMult*atr),
		Sector:      sector,
		DeliveryPct: c.DeliveryPct,
		Protocol:    protocol,
	}, ""
}

// MaxDisplay is the number of setups shown under the protocol
func (r *Refiner) MaxDisplay(killSwitch bool) int {
	if killSwitch {
		return r.cfg.MaxDisplayKill
	}
	return r.cfg.MaxDisplayNormal
}

// SortSetups orders by contract score descending, ties keep input order
func SortSetups(setups []contracts.ExecutionSetup) {
	sort.SliceStable(setups, func(i, j int) bool { return setups[i].Score > setups[j].Score })
}

// Throttle splits setups into the displayed head and the hidden count
func Throttle(setups []contracts.ExecutionSetup, max int) ([]contracts.ExecutionSetup, int) {
	if max < 0 {
		max = 0
	}
	if len(setups) <= max {
		return setups, 0
	}
	return setups[:max], len(setups) - max
}
