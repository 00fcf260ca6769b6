package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/diamond/pkg/logger"
)

func newTestScheduler() *Scheduler {
	return New(time.UTC, logger.Nop())
}

func TestAddJobRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := newTestScheduler()
	job := FuncJob{JobName: "heartbeat", Spec: "0 * * * * *", Fn: func(ctx context.Context) error { return nil }}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job))
	assert.Error(t, s.AddJob(FuncJob{JobName: "bad", Spec: "not a cron", Fn: job.Fn}))
	assert.Equal(t, []string{"heartbeat"}, s.GetAllJobs())

	_, err := s.GetJobHistory("bad")
	assert.Error(t, err)
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := newTestScheduler()
	calls := 0
	require.NoError(t, s.AddJob(FuncJob{JobName: "ok", Spec: "@daily", Fn: func(ctx context.Context) error {
		calls++
		return nil
	}}))
	require.NoError(t, s.AddJob(FuncJob{JobName: "fail", Spec: "@daily", Fn: func(ctx context.Context) error {
		return errors.New("upstream down")
	}}))

	require.NoError(t, s.RunJob("ok"))
	assert.Error(t, s.RunJob("fail"))
	assert.Error(t, s.RunJob("missing"))
	assert.Equal(t, 1, calls)

	stats := s.GetJobStats()
	assert.Equal(t, 1, stats["ok"].SuccessCount)
	assert.Equal(t, 1, stats["fail"].FailureCount)
	assert.NotNil(t, stats["fail"].LastFailure)
	assert.InDelta(t, 1.0, stats["ok"].SuccessRate, 1e-9)
}

func TestRunJobRecoversPanic(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(FuncJob{JobName: "panicky", Spec: "@daily", Fn: func(ctx context.Context) error {
		panic("nil map")
	}}))

	err := s.RunJob("panicky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	history, err := s.GetJobHistory("panicky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
}

func TestRunJobRetries(t *testing.T) {
	s := newTestScheduler().WithRetry(2, time.Millisecond)
	attempts := 0
	require.NoError(t, s.AddJob(FuncJob{JobName: "flaky", Spec: "@daily", Fn: func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}}))

	require.NoError(t, s.RunJob("flaky"))
	assert.Equal(t, 3, attempts)
}

func TestJobHistoryBounds(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Len(t, h.GetFailedResults(), 50)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
}
