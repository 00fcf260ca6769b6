package jobs

import (
	"context"

	"github.com/wonny/diamond/internal/s0_guard"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/metrics"
)

// QuarantineSweepJob paroles served sentences before the market opens
type QuarantineSweepJob struct {
	quarantine *s0_guard.Quarantine
	logger     *logger.Logger
}

// NewQuarantineSweepJob creates a new quarantine sweep job
func NewQuarantineSweepJob(q *s0_guard.Quarantine, log *logger.Logger) *QuarantineSweepJob {
	return &QuarantineSweepJob{
		quarantine: q,
		logger:     log.WithModule("quarantine_sweep"),
	}
}

// Name returns the job name
func (j *QuarantineSweepJob) Name() string {
	return "quarantine_sweep"
}

// Schedule returns the cron schedule (every day at 8 AM market time)
func (j *QuarantineSweepJob) Schedule() string {
	return "0 0 8 * * *"
}

// Run checks every entry; IsQuarantined releases served sentences
func (j *QuarantineSweepJob) Run(ctx context.Context) error {
	released := 0
	for _, e := range j.quarantine.List() {
		if !j.quarantine.IsQuarantined(e.Symbol) {
			released++
		}
	}

	size := j.quarantine.Size()
	metrics.QuarantineSize.Set(float64(size))

	if released > 0 {
		j.logger.WithFields(map[string]interface{}{
			"released": released,
			"jailed":   size,
		}).Info("Quarantine sweep completed")
	}
	return nil
}
