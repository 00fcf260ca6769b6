package s2_regime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/internal/testutil"
	"github.com/wonny/diamond/pkg/logger"
)

func sector(name string, perfs ...float64) []SectorPerf {
	out := make([]SectorPerf, len(perfs))
	for i, p := range perfs {
		out[i] = SectorPerf{Sector: name, Perf10d: p}
	}
	return out
}

func concat(parts ...[]SectorPerf) []SectorPerf {
	var out []SectorPerf
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newEngine() *Engine {
	return NewEngine(strategyconfig.Default().Regime, logger.Nop())
}

func TestComputeRanksByMedian(t *testing.T) {
	inputs := concat(
		sector("IT", 0.05, 0.06, 0.07, 0.08, 0.09),
		sector("Banks", -0.02, -0.01, 0.00, 0.01, 0.02),
		sector("Energy", -0.09, -0.08, -0.07, -0.06, -0.05, 0.50),
		sector("Tiny", 0.90, 0.95), // below MinSectorSize
	)

	r := newEngine().Compute(inputs)

	require.Len(t, r.Ranked, 3)
	assert.Equal(t, "IT", r.Leader())
	assert.Equal(t, "Energy", r.Laggard())

	// n=3: 100, round(66.67)=67, round(33.33)=33
	assert.Equal(t, map[string]int{"IT": 100, "Banks": 67, "Energy": 33}, r.SectorScores)
	assert.Equal(t, contracts.NeutralSectorScore, r.SectorScore("Tiny"))
	assert.InDelta(t, -0.065, r.Ranked[2].Median, 1e-12)

	// sample stdev of {100, 67, 33}
	mean := (100.0 + 67 + 33) / 3
	want := math.Sqrt((math.Pow(100-mean, 2) + math.Pow(67-mean, 2) + math.Pow(33-mean, 2)) / 2)
	assert.InDelta(t, want, r.Dispersion, 1e-9)
	assert.False(t, r.KillSwitch)
	assert.Equal(t, contracts.ProtocolNormal, r.Protocol)
	assert.Equal(t, "HEALTHY", r.Status())
}

func TestComputeKillSwitch(t *testing.T) {
	tests := []struct {
		name   string
		inputs []SectorPerf
		kill   bool
	}{
		{"no ranked sectors", sector("Tiny", 0.1, 0.2), true},
		{"single ranked sector", sector("IT", 0.1, 0.1, 0.1, 0.1, 0.1), true},
		{"two ranked sectors", concat(sector("IT", 0.1, 0.1, 0.1, 0.1, 0.1), sector("Banks", 0, 0, 0, 0, 0)), false},
		{"empty", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine().Compute(tt.inputs)
			assert.Equal(t, tt.kill, r.KillSwitch)
			assert.Equal(t, contracts.ProtocolFor(tt.kill), r.Protocol)
		})
	}
}

func TestComputeScoresInRange(t *testing.T) {
	var inputs []SectorPerf
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, n := range names {
		inputs = append(inputs, sector(n, float64(i), float64(i), float64(i), float64(i), float64(i))...)
	}

	r := newEngine().Compute(inputs)
	require.Len(t, r.Ranked, len(names))
	for i, rank := range r.Ranked {
		assert.GreaterOrEqual(t, rank.Score, 0)
		assert.LessOrEqual(t, rank.Score, 100)
		if i > 0 {
			assert.LessOrEqual(t, rank.Median, r.Ranked[i-1].Median)
		}
	}
	assert.Equal(t, 100, r.Ranked[0].Score)
}

func TestInputs(t *testing.T) {
	u := &contracts.Universe{
		Symbols: []string{"A", "B", "C"},
		Series: map[string]*contracts.PriceSeries{
			"A": testutil.LinearSeries("A", 30, 100, 1),
			"B": testutil.LinearSeries("B", 5, 100, 1), // too short for a 10-day return
			"C": testutil.LinearSeries("C", 30, 100, 1),
		},
	}
	funds := map[string]*contracts.Fundamentals{"A": {Sector: "IT"}}

	got := Inputs(u, funds, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "IT", got[0].Sector)
	assert.Equal(t, contracts.UnknownSector, got[1].Sector)
}
