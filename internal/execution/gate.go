package execution

import (
	"context"
	"fmt"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/metrics"
)

// =============================================================================
// IdempotencyGate - (date, symbol, run_id) 중복 제거
// =============================================================================

// GateResult summarizes one Apply
type GateResult struct {
	Appended int  `json:"appended"`
	Dropped  int  `json:"dropped"`
	FailOpen bool `json:"fail_open"` // 기존 키 조회 실패 → 전부 추가
}

// Gate deduplicates execution records against the store
// ⭐ SSOT: 기록 저장 전 멱등성 검사는 여기서만
type Gate struct {
	logger *logger.Logger
}

// NewGate creates a new idempotency gate
func NewGate(log *logger.Logger) *Gate {
	return &Gate{logger: log.WithModule("idempotency_gate")}
}

// Filter keeps rows whose key is absent from existing and from earlier
// rows of the same batch; dropped counts the rest.
func Filter(rows []contracts.ExecutionRecord, existing map[string]struct{}) ([]contracts.ExecutionRecord, int) {
	seen := make(map[string]struct{}, len(rows))
	unique := make([]contracts.ExecutionRecord, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		key := row.Key()
		if _, ok := existing[key]; ok {
			dropped++
			continue
		}
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, row)
	}
	return unique, dropped
}

// Apply filters rows against the store's keys and appends the survivors.
// When the key lookup fails every row is appended (fail-open).
func (g *Gate) Apply(ctx context.Context, store contracts.RecordStore, rows []contracts.ExecutionRecord) (GateResult, error) {
	var result GateResult
	if len(rows) == 0 {
		return result, nil
	}

	existing, err := store.ReadExistingKeys(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("Existing keys unavailable, appending all rows")
		existing = nil
		result.FailOpen = true
	}

	unique, dropped := Filter(rows, existing)
	result.Dropped = dropped

	if len(unique) > 0 {
		if err := store.Append(ctx, unique); err != nil {
			return result, fmt.Errorf("append records: %w", err)
		}
	}
	result.Appended = len(unique)
	metrics.RecordsAppended.Add(float64(len(unique)))

	g.logger.WithFields(map[string]interface{}{
		"appended":  result.Appended,
		"dropped":   result.Dropped,
		"fail_open": result.FailOpen,
	}).Info("Records persisted")

	return result, nil
}
