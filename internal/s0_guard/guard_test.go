package s0_guard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
)

// memoryRepo is an in-memory QuarantineRepository
type memoryRepo struct {
	entries map[string]string
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryRepo) Load() (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.entries {
		out[k] = v
	}
	return out, m.loadErr
}

func (m *memoryRepo) Save(entries map[string]string) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = map[string]string{}
	for k, v := range entries {
		m.entries[k] = v
	}
	return nil
}

func calendarAt(t *testing.T, date string) *market.Calendar {
	t.Helper()
	cal, err := market.NewCalendar(strategyconfig.Default().Market)
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" 10:00", cal.Location())
	require.NoError(t, err)
	return cal.WithClock(func() time.Time { return ts })
}

func TestQuarantineSentence(t *testing.T) {
	tests := []struct {
		name       string
		jailedOn   string
		want       bool
		keepsEntry bool
	}{
		{"jailed today", "2026-03-10", true, true},
		{"six days served", "2026-03-04", true, true},
		{"seven days served", "2026-03-03", false, false},
		{"long served", "2025-12-01", false, false},
		{"corrupt date", "03/04/2026", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryRepo{entries: map[string]string{"YESBANK": tt.jailedOn}}
			q := NewQuarantine(repo, 7, calendarAt(t, "2026-03-10"), logger.Nop())

			assert.Equal(t, tt.want, q.IsQuarantined("YESBANK"))
			_, persisted := repo.entries["YESBANK"]
			assert.Equal(t, tt.keepsEntry, persisted)
		})
	}
}

func TestQuarantineParoleIsMonotonic(t *testing.T) {
	repo := &memoryRepo{entries: map[string]string{"IDEA": "2026-03-01"}}
	q := NewQuarantine(repo, 7, calendarAt(t, "2026-03-10"), logger.Nop())

	assert.False(t, q.IsQuarantined("IDEA"))
	assert.False(t, q.IsQuarantined("IDEA"))

	// fresh store over the same persisted state
	q2 := NewQuarantine(repo, 7, calendarAt(t, "2026-03-20"), logger.Nop())
	assert.False(t, q2.IsQuarantined("IDEA"))
	assert.Empty(t, repo.entries)
}

func TestQuarantineAddRefreshesDate(t *testing.T) {
	repo := &memoryRepo{entries: map[string]string{"SUZLON": "2026-03-05"}}
	q := NewQuarantine(repo, 7, calendarAt(t, "2026-03-10"), logger.Nop())

	require.NoError(t, q.Add("SUZLON", "insufficient bars"))
	require.NoError(t, q.Add("SUZLON", "insufficient bars"))

	assert.Equal(t, "2026-03-10", repo.entries["SUZLON"])
	assert.Equal(t, 1, q.Size())
	assert.True(t, q.IsQuarantined("SUZLON"))
}

func TestQuarantineAddPersistFailureIsNonFatal(t *testing.T) {
	repo := &memoryRepo{entries: map[string]string{}, saveErr: errors.New("disk full")}
	q := NewQuarantine(repo, 7, calendarAt(t, "2026-03-10"), logger.Nop())

	err := q.Add("RCOM", "empty history")
	assert.Error(t, err)
	// in-memory jail still applies for this run
	assert.True(t, q.IsQuarantined("RCOM"))
}

func TestQuarantineFilterAndRelease(t *testing.T) {
	repo := &memoryRepo{entries: map[string]string{
		"A": "2026-03-09",
		"B": "2026-02-01",
	}}
	q := NewQuarantine(repo, 7, calendarAt(t, "2026-03-10"), logger.Nop())

	kept, jailed := q.Filter([]string{"A", "B", "C"})
	assert.Equal(t, []string{"B", "C"}, kept)
	assert.Equal(t, []string{"A"}, jailed)

	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].DaysServed)

	released, err := q.Release("A")
	require.NoError(t, err)
	assert.True(t, released)

	released, err = q.Release("A")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestFileRepository(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quarantine_list.json")
	repo := NewFileRepository(path)

	entries, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, repo.Save(map[string]string{"SBIN": "2026-03-02"}))
	entries, err = repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", entries["SBIN"])

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	entries, err = repo.Load()
	assert.Error(t, err)
	assert.Empty(t, entries)

	// corrupt file loads as empty through the store
	q := NewQuarantine(repo, 7, calendarAt(t, "2026-03-10"), logger.Nop())
	assert.False(t, q.IsQuarantined("SBIN"))
}

// probeProvider returns a fixed series or error
type probeProvider struct {
	bars   int
	err    error
	called int
}

func (p *probeProvider) FetchHistory(ctx context.Context, symbol, period string) (*contracts.PriceSeries, error) {
	p.called++
	if p.err != nil {
		return nil, p.err
	}
	return &contracts.PriceSeries{Symbol: symbol, Bars: make([]contracts.Bar, p.bars)}, nil
}

func TestHealthProbe(t *testing.T) {
	cfg := strategyconfig.Default().Guard.HealthProbe

	tests := []struct {
		name     string
		provider *probeProvider
		enabled  bool
		want     bool
	}{
		{"healthy", &probeProvider{bars: 5}, true, true},
		{"error", &probeProvider{err: errors.New("429")}, true, false},
		{"no rows", &probeProvider{bars: 0}, true, false},
		{"one row", &probeProvider{bars: 1}, true, false},
		{"two rows", &probeProvider{bars: 2}, true, true},
		{"disabled", &probeProvider{err: errors.New("down")}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Enabled = tt.enabled
			probe := NewHealthProbe(tt.provider, c, logger.Nop())
			assert.Equal(t, tt.want, probe.Probe(context.Background()))
		})
	}
}

func TestBreakerEvaluate(t *testing.T) {
	b := NewBreaker(strategyconfig.Default().Guard.Breaker)

	tests := []struct {
		attempted, failed int
		want              Action
	}{
		{100, 16, ActionAbort},
		{100, 15, ActionUseCachedFundamentals},
		{100, 10, ActionUseCachedFundamentals},
		{100, 5, ActionUseCachedFundamentals},
		{100, 4, ActionRefreshFundamentals},
		{100, 0, ActionRefreshFundamentals},
		{0, 0, ActionAbort},
	}

	for _, tt := range tests {
		d := b.Evaluate(tt.attempted, tt.failed)
		assert.Equal(t, tt.want, d.Action, "attempted=%d failed=%d", tt.attempted, tt.failed)
	}

	d := b.Evaluate(0, 0)
	assert.Equal(t, 1.0, d.FailureRate)
	assert.True(t, d.Abort())
	assert.False(t, b.Evaluate(100, 4).Abort())
	assert.True(t, b.Evaluate(100, 4).RefreshFundamentals())
}

func TestBreakerEvaluateUniverse(t *testing.T) {
	b := NewBreaker(strategyconfig.Default().Guard.Breaker)
	u := &contracts.Universe{
		Attempted: 10,
		Failures: map[string]*contracts.SymbolError{
			"A": contracts.NewSymbolError("A", contracts.KindFetch, nil),
			"B": contracts.NewSymbolError("B", contracts.KindEmpty, nil),
		},
	}

	d := b.EvaluateUniverse(u)
	assert.True(t, d.Abort())
	assert.Equal(t, 1, d.ByKind[contracts.KindFetch])
	assert.Equal(t, 1, d.ByKind[contracts.KindEmpty])
	assert.Equal(t, "20.0% failures (2/10)", d.Summary())
}
