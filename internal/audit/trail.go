package audit

import (
	"strconv"
	"time"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/logger"
)

// Rejection reasons
const (
	ReasonLowScore = "low score"
)

// Rejection is one candidate that did not clear the score threshold
type Rejection struct {
	Timestamp time.Time
	Symbol    string
	Score     int
	Reason    string
	Sector    string
}

// Trail is the append-only rejection audit file
// ⭐ SSOT: 탈락 사유 기록은 여기서만
type Trail struct {
	log    *csvLog
	logger *logger.Logger
}

// NewTrail creates a rejection trail at path
func NewTrail(path string, log *logger.Logger) *Trail {
	return &Trail{
		log: &csvLog{
			path:   path,
			header: []string{"timestamp", "symbol", "score", "reason", "sector"},
		},
		logger: log.WithModule("audit"),
	}
}

// Rejected builds a low-score rejection for c
func Rejected(c contracts.Candidate, at time.Time) Rejection {
	return Rejection{
		Timestamp: at,
		Symbol:    c.Symbol,
		Score:     c.Score,
		Reason:    ReasonLowScore,
		Sector:    c.Sector,
	}
}

// Record appends rejections in one write
func (t *Trail) Record(rejections []Rejection) error {
	rows := make([][]string, len(rejections))
	for i, r := range rejections {
		rows[i] = []string{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Symbol,
			strconv.Itoa(r.Score),
			r.Reason,
			r.Sector,
		}
	}
	if err := t.log.append(rows); err != nil {
		t.logger.WithError(err).Warn("Audit trail write failed")
		return err
	}
	t.logger.WithField("rows", len(rows)).Debug("Audit trail appended")
	return nil
}

// Rows returns all recorded rows, header excluded
func (t *Trail) Rows() ([][]string, error) {
	return t.log.readAll()
}
