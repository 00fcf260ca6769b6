package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/database"
	"github.com/wonny/diamond/pkg/logger"
)

var postgresSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS diamond`,
	`CREATE TABLE IF NOT EXISTS diamond.execution_records (
		id           BIGSERIAL PRIMARY KEY,
		date         DATE        NOT NULL,
		symbol       TEXT        NOT NULL,
		score        INTEGER     NOT NULL,
		price        NUMERIC     NOT NULL,
		stop_loss    NUMERIC     NOT NULL,
		target       NUMERIC     NOT NULL,
		sector       TEXT        NOT NULL,
		delivery_pct NUMERIC     NOT NULL,
		protocol     TEXT        NOT NULL,
		run_id       TEXT        NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (date, symbol, run_id)
	)`,
}

// PostgresStore persists execution history in PostgreSQL
// ⭐ SSOT: diamond.execution_records 저장/조회는 여기서만
type PostgresStore struct {
	db     *database.DB
	logger *logger.Logger
}

// NewPostgresStore ensures the schema exists
func NewPostgresStore(ctx context.Context, db *database.DB, log *logger.Logger) (*PostgresStore, error) {
	if err := db.EnsureSchema(ctx, postgresSchema...); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, logger: log.WithModule("records.postgres")}, nil
}

// ReadExistingKeys returns every stored (date, symbol, run_id) key
func (s *PostgresStore) ReadExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), symbol, run_id FROM diamond.execution_records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var date, symbol, runID string
		if err := rows.Scan(&date, &symbol, &runID); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys[contracts.RecordKey(date, symbol, runID)] = struct{}{}
	}
	return keys, rows.Err()
}

// Append inserts records in one batch; existing keys are ignored
func (s *PostgresStore) Append(ctx context.Context, records []contracts.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO diamond.execution_records (
			date, symbol, score, price, stop_loss, target, sector, delivery_pct, protocol, run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (date, symbol, run_id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query,
			r.Date, r.Symbol, r.Score, r.Price, r.StopLoss, r.Target,
			r.Sector, r.DeliveryPct, string(r.Protocol), r.RunID,
		)
	}

	br := s.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert execution record: %w", err)
		}
	}

	s.logger.WithField("count", len(records)).Debug("Appended execution records")
	return nil
}
