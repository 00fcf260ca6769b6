package records

import (
	"context"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/logger"
)

// keysFromRows validates each stored row and collects idempotency keys.
// Header rows are skipped; malformed rows are logged and ignored.
func keysFromRows(rows [][]string, log *logger.Logger) map[string]struct{} {
	keys := make(map[string]struct{}, len(rows))
	skipped := 0
	for i, row := range rows {
		if contracts.IsHeaderRow(row) {
			continue
		}
		key, err := contracts.KeyFromRow(row)
		if err != nil {
			skipped++
			log.WithFields(map[string]interface{}{
				"row":   i + 1,
				"error": err.Error(),
			}).Debug("Skipping malformed history row")
			continue
		}
		keys[key] = struct{}{}
	}
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("History contains malformed rows")
	}
	return keys
}

// Noop discards records (RECORD_STORE=none)
type Noop struct{}

// ReadExistingKeys always returns an empty set
func (Noop) ReadExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

// Append drops the records
func (Noop) Append(ctx context.Context, records []contracts.ExecutionRecord) error {
	return nil
}
