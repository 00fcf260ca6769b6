package s2_regime

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/metrics"
)

// SectorPerf is one symbol's sector and trailing return
type SectorPerf struct {
	Sector  string
	Perf10d float64
}

// Engine ranks sectors by median return and derives the kill switch
// ⭐ SSOT: S2 섹터 레짐 (중앙값 랭킹 → 분산도 → 프로토콜)
type Engine struct {
	cfg    strategyconfig.Regime
	logger *logger.Logger
}

// NewEngine creates a new regime engine
func NewEngine(cfg strategyconfig.Regime, log *logger.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: log.WithModule("s2_regime"),
	}
}

// Compute groups inputs by sector, keeps sectors with at least
// MinSectorSize members, ranks them by median return and scores rank i of
// n as round((1 - i/n) * 100). Dispersion is the sample standard deviation
// of those scores; the kill switch fires below DispersionThreshold.
func (e *Engine) Compute(inputs []SectorPerf) *contracts.Regime {
	start := time.Now()
	defer metrics.ObserveStage(string(contracts.StageRegime), start)

	groups := make(map[string][]float64)
	for _, in := range inputs {
		if math.IsNaN(in.Perf10d) || math.IsInf(in.Perf10d, 0) {
			continue
		}
		groups[in.Sector] = append(groups[in.Sector], in.Perf10d)
	}

	ranked := make([]contracts.SectorRank, 0, len(groups))
	for sector, perfs := range groups {
		if len(perfs) < e.cfg.MinSectorSize {
			continue
		}
		ranked = append(ranked, contracts.SectorRank{
			Sector:  sector,
			Median:  median(perfs),
			Members: len(perfs),
		})
	}

	// 동률은 섹터명 순 (map 순회 순서 제거)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Median != ranked[j].Median {
			return ranked[i].Median > ranked[j].Median
		}
		return ranked[i].Sector < ranked[j].Sector
	})

	n := len(ranked)
	scores := make(map[string]int, n)
	values := make([]float64, n)
	for i := range ranked {
		score := int(math.Round((1 - float64(i)/float64(n)) * 100))
		ranked[i].Score = score
		scores[ranked[i].Sector] = score
		values[i] = float64(score)
	}

	dispersion := sampleStdDev(values)
	kill := dispersion < e.cfg.DispersionThreshold

	regime := &contracts.Regime{
		SectorScores: scores,
		Ranked:       ranked,
		Dispersion:   dispersion,
		KillSwitch:   kill,
		Protocol:     contracts.ProtocolFor(kill),
	}

	metrics.Dispersion.Set(dispersion)
	e.logger.WithFields(map[string]interface{}{
		"sectors":     len(groups),
		"ranked":      n,
		"dispersion":  dispersion,
		"kill_switch": kill,
		"leader":      regime.Leader(),
		"laggard":     regime.Laggard(),
	}).Info("Sector regime computed")

	return regime
}

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// sampleStdDev uses the n-1 denominator; fewer than two values give 0
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
