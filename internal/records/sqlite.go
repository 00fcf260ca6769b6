package records

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // driver "sqlite", pure Go

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS execution_records (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	date         TEXT    NOT NULL,
	symbol       TEXT    NOT NULL,
	score        INTEGER NOT NULL,
	price        REAL    NOT NULL,
	stop_loss    REAL    NOT NULL,
	target       REAL    NOT NULL,
	sector       TEXT    NOT NULL,
	delivery_pct REAL    NOT NULL,
	protocol     TEXT    NOT NULL,
	run_id       TEXT    NOT NULL,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(date, symbol, run_id)
);
CREATE INDEX IF NOT EXISTS idx_execution_records_date ON execution_records(date);
`

// SQLiteStore persists execution history in a local SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore opens (or creates) the database and applies the schema
func NewSQLiteStore(path string, log *logger.Logger) (*SQLiteStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: log.WithModule("records.sqlite")}, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReadExistingKeys returns every stored (date, symbol, run_id) key
func (s *SQLiteStore) ReadExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, symbol, run_id FROM execution_records`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var date, symbol, runID string
		if err := rows.Scan(&date, &symbol, &runID); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys[contracts.RecordKey(date, symbol, runID)] = struct{}{}
	}
	return keys, rows.Err()
}

// Append inserts records in one transaction; existing keys are ignored
func (s *SQLiteStore) Append(ctx context.Context, records []contracts.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO execution_records
			(date, symbol, score, price, stop_loss, target, sector, delivery_pct, protocol, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Date, r.Symbol, r.Score, r.Price, r.StopLoss, r.Target,
			r.Sector, r.DeliveryPct, string(r.Protocol), r.RunID,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.WithField("count", len(records)).Debug("Appended execution records")
	return nil
}
