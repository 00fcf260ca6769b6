package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/pkg/logger"
)

// StageFunc runs one pipeline stage
type StageFunc func(ctx context.Context) error

// HeartbeatJob is the single orchestration tick.
// Strategy runs at most once per trading day after the run time;
// Execution runs inside the session no more often than minInterval.
// ⭐ SSOT: 전략/실행 실행 시점 판단은 여기서만
type HeartbeatJob struct {
	strategy    StageFunc
	execution   StageFunc
	cal         *market.Calendar
	state       *StateStore
	minInterval time.Duration
	schedule    string
	logger      *logger.Logger

	// 저장 실패 시에도 하루 1회/간격 보장
	mu   sync.Mutex // guards last
	last State
}

// NewHeartbeatJob creates the heartbeat job
func NewHeartbeatJob(
	strategy, execution StageFunc,
	cal *market.Calendar,
	state *StateStore,
	minInterval time.Duration,
	log *logger.Logger,
) *HeartbeatJob {
	return &HeartbeatJob{
		strategy:    strategy,
		execution:   execution,
		cal:         cal,
		state:       state,
		minInterval: minInterval,
		schedule:    "0 * * * * *", // every minute
		logger:      log.WithModule("heartbeat"),
	}
}

// Name returns the job name
func (j *HeartbeatJob) Name() string {
	return "heartbeat"
}

// Schedule returns the cron schedule
func (j *HeartbeatJob) Schedule() string {
	return j.schedule
}

// Run decides and runs the due stages. Stage errors and panics are
// logged; they never stop the tick or the next one.
func (j *HeartbeatJob) Run(ctx context.Context) error {
	now := j.cal.Now()
	st := j.current()
	today := j.cal.DateString(now)

	var saveErr error
	if j.cal.StrategyDue(now) && st.LastStrategyDate != today {
		j.runStage(ctx, "strategy", j.strategy)
		st.LastStrategyDate = today
		saveErr = j.save(st)
	}

	if !j.cal.InSession(now) {
		return saveErr
	}

	if !st.LastExecutionAt.IsZero() && now.Sub(st.LastExecutionAt) < j.minInterval {
		return saveErr
	}

	j.runStage(ctx, "execution", j.execution)
	st.LastExecutionAt = now
	if err := j.save(st); err != nil {
		return err
	}
	return saveErr
}

// current merges the persisted state with the in-memory one, keeping the later of each
func (j *HeartbeatJob) current() State {
	st := j.state.Load()

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last.LastStrategyDate > st.LastStrategyDate {
		st.LastStrategyDate = j.last.LastStrategyDate
	}
	if j.last.LastExecutionAt.After(st.LastExecutionAt) {
		st.LastExecutionAt = j.last.LastExecutionAt
	}
	return st
}

// save remembers st in memory first, then persists it
func (j *HeartbeatJob) save(st State) error {
	j.mu.Lock()
	j.last = st
	j.mu.Unlock()

	if err := j.state.Save(st); err != nil {
		return fmt.Errorf("save scheduler state: %w", err)
	}
	return nil
}

// Status reports when each stage last ran and whether they are due now
func (j *HeartbeatJob) Status() map[string]interface{} {
	now := j.cal.Now()
	st := j.current()
	return map[string]interface{}{
		"now":                now,
		"last_strategy_date": st.LastStrategyDate,
		"last_execution_at":  st.LastExecutionAt,
		"strategy_due":       j.cal.StrategyDue(now) && st.LastStrategyDate != j.cal.DateString(now),
		"in_session":         j.cal.InSession(now),
	}
}

func (j *HeartbeatJob) runStage(ctx context.Context, name string, fn StageFunc) {
	start := time.Now()
	log := j.logger.WithField("stage", name)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Stage panicked")
		}
	}()

	log.Info("Stage started")
	if err := fn(ctx); err != nil {
		log.WithError(err).Error("Stage failed")
		return
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Stage finished")
}
