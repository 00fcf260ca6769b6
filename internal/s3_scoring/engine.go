package s3_scoring

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/indicator"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
)

// Indicator periods
const (
	emaFast   = 20
	emaMid    = 50
	emaSlow   = 200
	rsiPeriod = 14
	atrPeriod = 14
	perfBars  = 10
)

// Input is everything the engine needs to score one symbol
type Input struct {
	Symbol        string
	Series        *contracts.PriceSeries
	DeliveryPct   float64
	Fundamentals  *contracts.Fundamentals
	Regime        *contracts.Regime
	MarketPerf10d float64 // fractional
}

// SubScores is the per-factor breakdown, each in [0,100]
type SubScores struct {
	Technical  float64 `json:"technical"`
	Liquidity  float64 `json:"liquidity"`
	Sector     float64 `json:"sector"`
	Alpha      float64 `json:"alpha"`
	Valuation  float64 `json:"valuation"`
	Solvency   float64 `json:"solvency"`
	Volatility float64 `json:"volatility"`
}

// Engine computes the seven-factor composite score
// ⭐ SSOT: S3 점수 계산 (순수 함수, 동일 입력 → 동일 출력)
type Engine struct {
	cfg    strategyconfig.Scoring
	logger *logger.Logger
}

// NewEngine creates a new scoring engine
func NewEngine(cfg strategyconfig.Scoring, log *logger.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: log.WithModule("s3_scoring"),
	}
}

// Score returns the candidate for in, or a SymbolError when the series is
// too short (KindInsufficient) or a required indicator is undefined
// (KindIndicator). EMA200 is optional.
func (e *Engine) Score(in Input) (*contracts.Candidate, error) {
	c, _, err := e.ScoreDetailed(in)
	return c, err
}

// ScoreDetailed is Score plus the factor breakdown
func (e *Engine) ScoreDetailed(in Input) (*contracts.Candidate, *SubScores, error) {
	n := in.Series.Len()
	if n < e.cfg.MinBars {
		return nil, nil, contracts.NewSymbolError(in.Symbol, contracts.KindInsufficient,
			fmt.Errorf("%d bars < %d", n, e.cfg.MinBars))
	}

	closes := in.Series.Closes()
	price := in.Series.LastClose()

	ema20, ok20 := indicator.EMA(closes, emaFast)
	ema50, ok50 := indicator.EMA(closes, emaMid)
	ema200, ok200 := indicator.EMA(closes, emaSlow)
	rsi, okRSI := indicator.RSI(closes, rsiPeriod)
	atr, okATR := indicator.ATR(in.Series.Highs(), in.Series.Lows(), closes, atrPeriod)
	if !ok20 || !ok50 || !okRSI || !okATR || price <= 0 {
		return nil, nil, contracts.NewSymbolError(in.Symbol, contracts.KindIndicator,
			fmt.Errorf("undefined indicator (ema20=%t ema50=%t rsi=%t atr=%t)", ok20, ok50, okRSI, okATR))
	}

	perf, ok := in.Series.PerfOver(perfBars)
	if !ok {
		return nil, nil, contracts.NewSymbolError(in.Symbol, contracts.KindIndicator, fmt.Errorf("undefined %d-day return", perfBars))
	}

	sector := in.Fundamentals.SectorOrUnknown()
	var pe, de float64
	if in.Fundamentals != nil {
		pe, de = in.Fundamentals.PE, in.Fundamentals.DebtToEquity
	}

	sub := &SubScores{
		Technical:  TechnicalScore(price, ema20, ema50, ema200, ok200, rsi),
		Liquidity:  LiquidityScore(in.DeliveryPct, e.cfg.DeliveryFullPct),
		Sector:     float64(in.Regime.SectorScore(sector)),
		Alpha:      AlphaScore(perf, in.MarketPerf10d),
		Valuation:  ValuationScore(pe),
		Solvency:   SolvencyScore(de),
		Volatility: VolatilityScore(atr / price),
	}

	return &contracts.Candidate{
		Symbol:      in.Symbol,
		Score:       e.composite(sub),
		Price:       price,
		StopLoss:    Round1(price - e.cfg.StopATRMult*atr),
		Target:      Round1(price + e.cfg.TargetATRMult*atr),
		Sector:      sector,
		DeliveryPct: Round1(in.DeliveryPct),
		Perf10d:     perf,
	}, sub, nil
}

// composite blends the sub-scores with percentage weights and truncates
// to an integer in [0,100]
func (e *Engine) composite(s *SubScores) int {
	w := e.cfg.WeightsPct
	total := s.Technical*float64(w.Technical) +
		s.Liquidity*float64(w.Liquidity) +
		s.Sector*float64(w.Sector) +
		s.Alpha*float64(w.Alpha) +
		s.Valuation*float64(w.Valuation) +
		s.Solvency*float64(w.Solvency) +
		s.Volatility*float64(w.Volatility)
	score := int(total/100 + 1e-9)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Passes reports whether score clears the publication threshold
func (e *Engine) Passes(score int) bool {
	return score > e.cfg.Threshold
}

// TechnicalScore: 100/90 when price is above each of EMA20/50/200 (RSI in
// [55,70] or not), 60 above EMA50 only, else 20. The EMAs need not be stacked.
func TechnicalScore(price, ema20, ema50, ema200 float64, hasEMA200 bool, rsi float64) float64 {
	if hasEMA200 && price > ema20 && price > ema50 && price > ema200 {
		if rsi >= 55 && rsi <= 70 {
			return 100
		}
		return 90
	}
	if price > ema50 {
		return 60
	}
	return 20
}

// LiquidityScore scales delivery percentage so that fullPct scores 100
func LiquidityScore(deliveryPct, fullPct float64) float64 {
	if fullPct <= 0 || deliveryPct <= 0 || math.IsNaN(deliveryPct) {
		return 0
	}
	return math.Min(100, deliveryPct/fullPct*100)
}

// AlphaScore buckets the 10-day excess return in basis points
func AlphaScore(perf, marketPerf float64) float64 {
	bps := (perf - marketPerf) * 10000
	switch {
	case bps > 300:
		return 100
	case bps > 100:
		return 80
	case bps > 0:
		return 60
	default:
		return 30
	}
}

// ValuationScore buckets trailing P/E; non-positive P/E falls to 70
func ValuationScore(pe float64) float64 {
	switch {
	case pe > 0 && pe < 30:
		return 100
	case pe < 60:
		return 70
	default:
		return 40
	}
}

// SolvencyScore buckets debt-to-equity (percent)
func SolvencyScore(de float64) float64 {
	switch {
	case de <= 50:
		return 100
	case de <= 150:
		return 70
	default:
		return 30
	}
}

// VolatilityScore buckets ATR / price
func VolatilityScore(ratio float64) float64 {
	switch {
	case ratio < 0.02:
		return 100
	case ratio < 0.04:
		return 70
	default:
		return 40
	}
}

// Round1 rounds half away from zero to one decimal
func Round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// DeliveryFor returns symbol's delivery percentage or def when unknown
func DeliveryFor(delivery map[string]float64, symbol string, def float64) float64 {
	if v, ok := delivery[symbol]; ok {
		return v
	}
	return def
}
