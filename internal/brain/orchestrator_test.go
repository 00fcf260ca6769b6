package brain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/diamond/internal/audit"
	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/fundamentals"
	"github.com/wonny/diamond/internal/s0_guard"
	"github.com/wonny/diamond/internal/s3_scoring"
	"github.com/wonny/diamond/internal/s4_contract"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/internal/testutil"
	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/logger"
)

const runAt = "2026-03-04 09:20"

type fixture struct {
	dir        string
	prices     *testutil.FakePrices
	funds      *testutil.FakeFundamentals
	notifier   *testutil.MemoryNotifier
	quarantine *s0_guard.Quarantine
	orch       *Orchestrator
}

// newFixture builds 8 symbols: 5 Technology and 3 Energy
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cal := testutil.CalendarAt(t, runAt)

	cfg := strategyconfig.Default()
	cfg.Fundamentals.Jitter = 0

	prices := testutil.NewFakePrices()
	prices.Series["SBIN"] = testutil.LinearSeries("SBIN", 5, 600, 1)
	prices.Series["^NSEI"] = testutil.LinearSeries("^NSEI", 120, 22000, 40)

	funds := testutil.NewFakeFundamentals()
	symbols := []string{"TCS", "INFY", "WIPRO", "HCLTECH", "TECHM", "RELIANCE", "ONGC", "BPCL"}
	for i, sym := range symbols {
		sector := "Technology"
		if i >= 5 {
			sector = "Energy"
		}
		prices.Series[sym] = testutil.LinearSeries(sym, 250, 100+float64(i)*10, 0.4+float64(i)*0.05)
		funds.Data[sym] = &contracts.Fundamentals{Symbol: sym, PE: 20, DebtToEquity: 0.5, Sector: sector}
	}

	q := s0_guard.NewQuarantine(s0_guard.NewFileRepository(filepath.Join(dir, cfg.Guard.Quarantine.File)),
		cfg.Guard.Quarantine.Days, cal, logger.Nop())
	notifier := &testutil.MemoryNotifier{}
	snapshot := &strategyconfig.DecisionSnapshot{
		ConfigHash: "hash-1",
		ConfigYAML: "meta: {}",
		StrategyID: cfg.Meta.StrategyID,
	}

	ports := Ports{
		Prices:       prices,
		Universe:     &testutil.FakeUniverse{Symbols: symbols},
		Delivery:     &testutil.FakeDelivery{},
		Fundamentals: funds,
		Cache:        fundamentals.NewFileCache(filepath.Join(dir, cfg.Fundamentals.File)),
		Notifier:     notifier,
	}

	return &fixture{
		dir:        dir,
		prices:     prices,
		funds:      funds,
		notifier:   notifier,
		quarantine: q,
		orch:       NewOrchestrator(ports, q, cal, cfg, snapshot, dir, logger.Nop()),
	}
}

func TestRunWritesContract(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeCompleted, result.Outcome)
	assert.Equal(t, []string{"S0:Probe", "S1:Universe", "S0:Breaker", "S2:Regime", "S3:Scoring", "S4:Contract"}, result.CompletedStages)
	assert.Equal(t, s0_guard.ActionRefreshFundamentals, result.Decision.Action)
	assert.Equal(t, 8, f.funds.CallCount())

	// Energy has 3 members < min sector size
	require.Len(t, result.Regime.Ranked, 1)
	assert.Equal(t, "Technology", result.Regime.Ranked[0].Sector)
	assert.Zero(t, result.Regime.Dispersion)
	assert.True(t, result.Regime.KillSwitch)
	assert.Equal(t, contracts.ProtocolReduce, result.Regime.Protocol)

	assert.Equal(t, 8, result.Scored)
	require.NotNil(t, result.Contract)
	assert.Equal(t, 8, result.Contract.Count+result.Rejected)
	assert.True(t, result.Contract.IsSorted())

	loaded, err := s4_contract.NewReader(filepath.Join(f.dir, "diamond_signal.json"), logger.Nop()).Load()
	require.NoError(t, err)
	assert.Equal(t, result.Contract.Count, loaded.Count)
	assert.Equal(t, "hash-1", loaded.Meta.ConfigHash)
	assert.Equal(t, "Technology", loaded.Meta.SectorLeader)
	assert.Equal(t, contracts.TrendBull, loaded.Meta.Trend)
	assert.True(t, loaded.Meta.KillSwitch)

	rows, err := audit.NewJournal(filepath.Join(f.dir, "regime_journal.csv"), logger.Nop()).Rows()
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.Empty(t, f.notifier.Sent())

	var snapshot strategyconfig.DecisionSnapshot
	require.NoError(t, fileutil.ReadJSON(filepath.Join(f.dir, "diamond_signal.config.json"), &snapshot))
	assert.Equal(t, "hash-1", snapshot.ConfigHash)
	assert.Equal(t, "meta: {}", snapshot.ConfigYAML)
}

func TestRunRecordsStageResults(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Stages, 6)
	for i, label := range result.CompletedStages {
		assert.Equal(t, label, result.Stages[i].Label())
		assert.True(t, result.Stages[i].Success())
	}

	universe := result.Stages[1]
	assert.Equal(t, contracts.StageUniverse, universe.Stage)
	assert.Equal(t, 8, universe.InputCount)
	assert.Equal(t, 8, universe.OutputCount)

	contract := result.Stages[5]
	assert.Equal(t, contracts.StageContract, contract.Stage)
	assert.Equal(t, result.Contract.Count, contract.OutputCount)
	assert.Equal(t, result.Contract.Meta.ContractID, contract.Metadata["contract_id"])
}

func TestRunUnrankedSectorScoresNeutral(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Contract)
	assert.Equal(t, contracts.NeutralSectorScore, result.Regime.SectorScore("Energy"))
	assert.Equal(t, 100, result.Regime.SectorScore("Technology"))

	published := make(map[string]int, result.Contract.Count)
	for _, c := range result.Contract.Universe {
		published[c.Symbol] = c.Score
	}

	cfg := strategyconfig.Default()
	engine := s3_scoring.NewEngine(cfg.Scoring, logger.Nop())
	for sym, fund := range f.funds.Data {
		c, sub, err := engine.ScoreDetailed(s3_scoring.Input{
			Symbol:        sym,
			Series:        f.prices.Series[sym],
			DeliveryPct:   cfg.Delivery.DefaultPct,
			Fundamentals:  fund,
			Regime:        result.Regime,
			MarketPerf10d: result.Market.Perf10d,
		})
		require.NoError(t, err, sym)

		want := 100.0
		if fund.Sector == "Energy" {
			want = float64(contracts.NeutralSectorScore)
		}
		assert.Equal(t, want, sub.Sector, sym)

		if score, ok := published[sym]; ok {
			assert.Equal(t, c.Score, score, sym)
		}
	}
}

func TestRunBreakerAbortAlertsOnce(t *testing.T) {
	f := newFixture(t)
	f.prices.Errs["TCS"] = errors.New("timeout")
	f.prices.Errs["ONGC"] = errors.New("timeout")

	result, err := f.orch.Run(context.Background())
	require.ErrorIs(t, err, ErrBreakerTripped)

	assert.Equal(t, contracts.OutcomeBreakerTripped, result.Outcome)
	assert.Nil(t, result.Contract)
	require.Len(t, f.notifier.Sent(), 1)
	assert.Contains(t, f.notifier.Sent()[0], "25.0%")

	_, statErr := os.Stat(filepath.Join(f.dir, "diamond_signal.json"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(f.dir, "diamond_signal.config.json"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Zero(t, f.funds.CallCount())

	assert.Equal(t, []string{"S0:Probe", "S1:Universe"}, result.CompletedStages)
	last := result.Stages[len(result.Stages)-1]
	assert.Equal(t, "S0:Breaker", last.Label())
	assert.Equal(t, contracts.OutcomeBreakerTripped, last.Outcome)
}

func TestRunProbeFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	delete(f.prices.Series, "SBIN")

	result, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeProbeFailed, result.Outcome)
	assert.Empty(t, f.notifier.Sent())
	assert.Zero(t, f.prices.Calls["TCS"])
}

func TestRunDegradedUsesCachedFundamentals(t *testing.T) {
	f := newFixture(t)
	// 1/8 = 12.5% failures: between fundamental_abort and max_failure_rate
	f.prices.Errs["BPCL"] = errors.New("timeout")

	result, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, s0_guard.ActionUseCachedFundamentals, result.Decision.Action)
	assert.Zero(t, f.funds.CallCount())
	// 캐시 없음 → 전부 Unknown 섹터 (7 members)
	require.Len(t, result.Regime.Ranked, 1)
	assert.Equal(t, contracts.UnknownSector, result.Regime.Ranked[0].Sector)
	assert.False(t, f.quarantine.IsQuarantined("BPCL"))
}

func TestRunJailsIndicatorFailures(t *testing.T) {
	f := newFixture(t)
	flat := testutil.LinearSeries("WIPRO", 250, 100, 0)
	for i := range flat.Bars {
		flat.Bars[i].High = flat.Bars[i].Close
		flat.Bars[i].Low = flat.Bars[i].Close
	}
	f.prices.Series["WIPRO"] = flat

	result, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, result.Scored)
	assert.Equal(t, 1, result.Jailed)
	assert.True(t, f.quarantine.IsQuarantined("WIPRO"))
	for _, c := range result.Contract.Universe {
		assert.NotEqual(t, "WIPRO", c.Symbol)
	}
}
