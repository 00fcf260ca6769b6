package contracts

import (
	"fmt"
	"strconv"
)

// ExecutionSetup is a contract candidate re-validated against live prices
type ExecutionSetup struct {
	Symbol      string   `json:"symbol"`
	Score       int      `json:"score"` // 계약 점수 (재계산하지 않음)
	Price       float64  `json:"price"`
	StopLoss    float64  `json:"sl"`
	Target      float64  `json:"tgt"`
	Sector      string   `json:"sector"`
	DeliveryPct float64  `json:"del_pct"`
	Protocol    Protocol `json:"protocol"`
}

// RecordColumns is the persisted row layout; run_id is always last
var RecordColumns = []string{
	"date", "symbol", "score", "price", "stop_loss", "target",
	"sector", "delivery_pct", "protocol", "run_id",
}

// ExecutionRecord is one append-only history row
type ExecutionRecord struct {
	Date        string   `json:"date"` // YYYY-MM-DD (market tz)
	Symbol      string   `json:"symbol"`
	Score       int      `json:"score"`
	Price       float64  `json:"price"`
	StopLoss    float64  `json:"stop_loss"`
	Target      float64  `json:"target"`
	Sector      string   `json:"sector"`
	DeliveryPct float64  `json:"delivery_pct"`
	Protocol    Protocol `json:"protocol"`
	RunID       string   `json:"run_id"` // YYYYMMDDHHMM
}

// RecordKey builds the idempotency key date|symbol|run_id
func RecordKey(date, symbol, runID string) string {
	return date + "|" + symbol + "|" + runID
}

// Key returns the record's idempotency key
func (r ExecutionRecord) Key() string {
	return RecordKey(r.Date, r.Symbol, r.RunID)
}

// Row renders the record in RecordColumns order
func (r ExecutionRecord) Row() []string {
	return []string{
		r.Date,
		r.Symbol,
		strconv.Itoa(r.Score),
		strconv.FormatFloat(r.Price, 'f', -1, 64),
		strconv.FormatFloat(r.StopLoss, 'f', -1, 64),
		strconv.FormatFloat(r.Target, 'f', -1, 64),
		r.Sector,
		strconv.FormatFloat(r.DeliveryPct, 'f', -1, 64),
		string(r.Protocol),
		r.RunID,
	}
}

// KeyFromRow extracts the idempotency key from a stored row.
// The row must have exactly len(RecordColumns) cells.
func KeyFromRow(row []string) (string, error) {
	if len(row) != len(RecordColumns) {
		return "", fmt.Errorf("row has %d columns, want %d", len(row), len(RecordColumns))
	}
	if row[0] == "" || row[1] == "" || row[len(row)-1] == "" {
		return "", fmt.Errorf("row has blank key cells")
	}
	return RecordKey(row[0], row[1], row[len(row)-1]), nil
}

// IsHeaderRow reports whether row is the column header
func IsHeaderRow(row []string) bool {
	return len(row) > 0 && row[0] == RecordColumns[0]
}
