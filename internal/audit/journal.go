package audit

import (
	"strconv"
	"time"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/logger"
)

// Journal is the append-only regime journal, one row per strategy run
type Journal struct {
	log    *csvLog
	logger *logger.Logger
}

// NewJournal creates a regime journal at path
func NewJournal(path string, log *logger.Logger) *Journal {
	return &Journal{
		log: &csvLog{
			path:   path,
			header: []string{"date", "leader", "laggard", "dispersion", "status"},
		},
		logger: log.WithModule("regime_journal"),
	}
}

// Record appends the regime of date
func (j *Journal) Record(date time.Time, r *contracts.Regime) error {
	row := []string{
		date.Format("2006-01-02"),
		r.Leader(),
		r.Laggard(),
		strconv.FormatFloat(r.Dispersion, 'f', 2, 64),
		r.Status(),
	}
	if err := j.log.append([][]string{row}); err != nil {
		j.logger.WithError(err).Warn("Regime journal write failed")
		return err
	}
	return nil
}

// Rows returns all journal rows, header excluded
func (j *Journal) Rows() ([][]string, error) {
	return j.log.readAll()
}
