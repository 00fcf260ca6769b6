package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/diamond/internal/s0_guard"
	"github.com/wonny/diamond/internal/testutil"
	"github.com/wonny/diamond/pkg/logger"
)

type counter struct {
	strategy  int
	execution int
}

func newHeartbeat(t *testing.T, c *counter, now *time.Time) (*HeartbeatJob, *StateStore) {
	t.Helper()
	cal := testutil.CalendarAt(t, "2026-03-04 09:00")
	cal = cal.WithClock(func() time.Time { return *now })
	state := NewStateStore(filepath.Join(t.TempDir(), "scheduler_state.json"), logger.Nop())

	hb := NewHeartbeatJob(
		func(ctx context.Context) error { c.strategy++; return nil },
		func(ctx context.Context) error { c.execution++; return nil },
		cal, state, 15*time.Minute, logger.Nop(),
	)
	return hb, state
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	require.NoError(t, err)
	return ts
}

func TestHeartbeatSchedule(t *testing.T) {
	c := &counter{}
	var now time.Time
	hb, state := newHeartbeat(t, c, &now)
	ctx := context.Background()

	steps := []struct {
		at        string
		strategy  int
		execution int
	}{
		{"2026-03-04 08:30", 0, 0}, // 세션 전
		{"2026-03-04 09:10", 0, 1}, // 세션 중, 전략 시간 전
		{"2026-03-04 09:20", 1, 1}, // 전략 1회, 실행 간격 미달
		{"2026-03-04 09:25", 1, 2},
		{"2026-03-04 09:30", 1, 2},
		{"2026-03-04 15:59", 1, 3},
		{"2026-03-04 16:30", 1, 3}, // 세션 종료 후 건너뜀
		{"2026-03-05 09:15", 2, 4}, // 다음 거래일
		{"2026-03-07 10:00", 2, 4}, // 토요일
	}

	for _, s := range steps {
		now = at(t, s.at)
		require.NoError(t, hb.Run(ctx))
		assert.Equal(t, s.strategy, c.strategy, "strategy runs at %s", s.at)
		assert.Equal(t, s.execution, c.execution, "execution runs at %s", s.at)
	}

	assert.Equal(t, "2026-03-05", state.Load().LastStrategyDate)
}

func TestHeartbeatStrategyFailureStillCountsForTheDay(t *testing.T) {
	var now time.Time
	cal := testutil.CalendarAt(t, "2026-03-04 09:00").WithClock(func() time.Time { return now })
	state := NewStateStore(filepath.Join(t.TempDir(), "state.json"), logger.Nop())

	strategyRuns := 0
	hb := NewHeartbeatJob(
		func(ctx context.Context) error { strategyRuns++; return errors.New("breaker tripped") },
		func(ctx context.Context) error { panic("boom") },
		cal, state, 15*time.Minute, logger.Nop(),
	)

	now = at(t, "2026-03-04 09:16")
	require.NoError(t, hb.Run(context.Background()))
	now = at(t, "2026-03-04 09:40")
	require.NoError(t, hb.Run(context.Background()))

	assert.Equal(t, 1, strategyRuns)
	assert.Equal(t, at(t, "2026-03-04 09:40").Unix(), state.Load().LastExecutionAt.Unix())
}

func TestHeartbeatResumesFromPersistedState(t *testing.T) {
	c := &counter{}
	now := at(t, "2026-03-04 09:20")
	hb, state := newHeartbeat(t, c, &now)
	require.NoError(t, state.Save(State{LastStrategyDate: "2026-03-04", LastExecutionAt: at(t, "2026-03-04 09:10")}))

	require.NoError(t, hb.Run(context.Background()))
	assert.Zero(t, c.strategy)
	assert.Zero(t, c.execution)

	status := hb.Status()
	assert.Equal(t, false, status["strategy_due"])
	assert.Equal(t, true, status["in_session"])
}

func TestHeartbeatUnwritableStateStillRunsStrategyOnce(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	var now time.Time
	cal := testutil.CalendarAt(t, "2026-03-04 09:00").WithClock(func() time.Time { return now })
	// 상위 경로가 일반 파일 → 저장 항상 실패
	state := NewStateStore(filepath.Join(blocker, "state.json"), logger.Nop())

	c := &counter{}
	hb := NewHeartbeatJob(
		func(ctx context.Context) error { c.strategy++; return nil },
		func(ctx context.Context) error { c.execution++; return nil },
		cal, state, 15*time.Minute, logger.Nop(),
	)

	now = at(t, "2026-03-04 09:16")
	assert.Error(t, hb.Run(context.Background()))
	for _, ts := range []string{"2026-03-04 09:17", "2026-03-04 09:18"} {
		now = at(t, ts)
		assert.NoError(t, hb.Run(context.Background()), ts)
	}
	assert.Equal(t, 1, c.strategy)
	assert.Equal(t, 1, c.execution)

	now = at(t, "2026-03-04 09:32")
	assert.Error(t, hb.Run(context.Background()))
	assert.Equal(t, 1, c.strategy)
	assert.Equal(t, 2, c.execution)

	status := hb.Status()
	assert.Equal(t, "2026-03-04", status["last_strategy_date"])
	assert.Equal(t, false, status["strategy_due"])
}

func TestStateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st := NewStateStore(path, logger.Nop()).Load()
	assert.Equal(t, State{}, st)
}

func TestQuarantineSweep(t *testing.T) {
	dir := t.TempDir()
	repo := s0_guard.NewFileRepository(filepath.Join(dir, "quarantine.json"))
	require.NoError(t, repo.Save(map[string]string{
		"OLD": "2026-02-20",
		"NEW": "2026-03-03",
	}))

	q := s0_guard.NewQuarantine(repo, 7, testutil.CalendarAt(t, "2026-03-04 08:00"), logger.Nop())
	require.NoError(t, NewQuarantineSweepJob(q, logger.Nop()).Run(context.Background()))

	assert.Equal(t, 1, q.Size())
	assert.True(t, q.IsQuarantined("NEW"))

	entries, err := repo.Load()
	require.NoError(t, err)
	assert.NotContains(t, entries, "OLD")
}
