package contracts

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortCandidatesStable(t *testing.T) {
	cs := []Candidate{
		{Symbol: "A", Score: 80},
		{Symbol: "B", Score: 90},
		{Symbol: "C", Score: 80},
		{Symbol: "D", Score: 95},
	}

	SortCandidates(cs)

	got := []string{}
	for _, c := range cs {
		got = append(got, c.Symbol)
	}
	assert.Equal(t, []string{"D", "B", "A", "C"}, got)

	contract := SignalContract{Universe: cs}
	assert.True(t, contract.IsSorted())
}

func TestRegimeLookups(t *testing.T) {
	r := &Regime{
		SectorScores: map[string]int{"BANK": 100, "IT": 50},
		Ranked:       []SectorRank{{Sector: "BANK"}, {Sector: "IT"}},
	}

	assert.Equal(t, 100, r.SectorScore("BANK"))
	assert.Equal(t, NeutralSectorScore, r.SectorScore("PHARMA"))
	assert.Equal(t, "BANK", r.Leader())
	assert.Equal(t, "IT", r.Laggard())

	var none *Regime
	assert.Equal(t, NeutralSectorScore, none.SectorScore("BANK"))
	assert.Equal(t, "", none.Leader())
}

func TestProtocolFor(t *testing.T) {
	assert.Equal(t, ProtocolReduce, ProtocolFor(true))
	assert.Equal(t, ProtocolNormal, ProtocolFor(false))
	assert.True(t, ProtocolNormal.Valid())
	assert.False(t, Protocol("NORMAL").Valid())
}

func TestPerfOver(t *testing.T) {
	series := &PriceSeries{}
	for i := 0; i < 12; i++ {
		series.Bars = append(series.Bars, Bar{Close: float64(100 + i)})
	}

	// close[len-10] = 102, last = 111
	perf, ok := series.PerfOver(10)
	require.True(t, ok)
	assert.InDelta(t, 9.0/102.0, perf, 1e-12)

	_, ok = series.PerfOver(20)
	assert.False(t, ok)
}

func TestRecordKeyAndRow(t *testing.T) {
	rec := ExecutionRecord{
		Date: "2025-01-01", Symbol: "RELIANCE", Score: 82, Price: 1250.5,
		StopLoss: 1230.1, Target: 1286.2, Sector: "Energy", DeliveryPct: 48.2,
		Protocol: ProtocolNormal, RunID: "202501010915",
	}

	assert.Equal(t, "2025-01-01|RELIANCE|202501010915", rec.Key())

	row := rec.Row()
	require.Len(t, row, len(RecordColumns))

	key, err := KeyFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, rec.Key(), key)
}

func TestKeyFromRowShape(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"short", []string{"2025-01-01", "SBIN", "202501010915"}},
		{"long", make([]string, 11)},
		{"blank run id", []string{"2025-01-01", "SBIN", "80", "1", "1", "1", "Bank", "30", "NORMAL_SIZE_100", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KeyFromRow(tt.row)
			assert.Error(t, err)
		})
	}

	assert.True(t, IsHeaderRow(RecordColumns))
	assert.False(t, IsHeaderRow([]string{"2025-01-01"}))
}

func TestSymbolErrorClassification(t *testing.T) {
	fetchErr := AsSymbolError("SBIN", errors.New("timeout"))
	assert.Equal(t, KindFetch, fetchErr.Kind)
	assert.False(t, fetchErr.IsDataQuality())

	emptyErr := AsSymbolError("SBIN", fmt.Errorf("chart: %w", ErrNoData))
	assert.Equal(t, KindEmpty, emptyErr.Kind)
	assert.True(t, emptyErr.IsDataQuality())

	wrapped := fmt.Errorf("scoring: %w", NewSymbolError("TCS", KindInsufficient, nil))
	assert.Equal(t, KindInsufficient, AsSymbolError("TCS", wrapped).Kind)
}

func TestFundamentalsStaleness(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	f := &Fundamentals{UpdatedAt: now.AddDate(0, 0, -8)}

	assert.True(t, f.IsStale(now, 7*24*time.Hour))
	assert.False(t, (&Fundamentals{UpdatedAt: now.AddDate(0, 0, -2)}).IsStale(now, 7*24*time.Hour))
	assert.Equal(t, UnknownSector, (&Fundamentals{}).SectorOrUnknown())

	// failed lookups are only reused for a day
	ph := PlaceholderFundamentals("NEWCO", now.Add(-25*time.Hour))
	assert.True(t, ph.IsStale(now, 7*24*time.Hour))
	assert.False(t, PlaceholderFundamentals("NEWCO", now.Add(-2*time.Hour)).IsStale(now, 7*24*time.Hour))
	assert.Equal(t, UnknownSector, ph.Sector)
}

func TestStage(t *testing.T) {
	assert.Equal(t, "S3", StageScoring.ShortName())
	assert.Equal(t, "UNKNOWN", Stage("S5_PORTFOLIO").ShortName())
	assert.Equal(t, "contract write", StageContract.Description())
}

func TestPipelineResultLabel(t *testing.T) {
	ok := PipelineResult{Stage: StageGuard, Step: "Breaker", Outcome: OutcomeCompleted}
	assert.Equal(t, "S0:Breaker", ok.Label())
	assert.True(t, ok.Success())

	tripped := PipelineResult{Stage: StageGuard, Step: "Breaker", Outcome: OutcomeBreakerTripped}
	assert.False(t, tripped.Success())
}
