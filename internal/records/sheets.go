package records

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/config"
	"github.com/wonny/diamond/pkg/logger"
)

// SheetsStore appends execution history to a Google Sheets tab
type SheetsStore struct {
	service   *sheets.Service
	sheetID   string
	sheetName string
	logger    *logger.Logger
}

// NewSheetsStore authenticates with the service account JSON.
// Extra client options replace the credentials (used by tests).
func NewSheetsStore(ctx context.Context, cfg config.SheetsConfig, log *logger.Logger, opts ...option.ClientOption) (*SheetsStore, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsStore{
		service:   service,
		sheetID:   cfg.SheetID,
		sheetName: cfg.SheetName,
		logger:    log.WithModule("records.sheets"),
	}, nil
}

func (s *SheetsStore) dataRange() string {
	return s.sheetName + "!A:J"
}

// ReadExistingKeys reads the whole tab and validates every row's shape
func (s *SheetsStore) ReadExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", s.sheetName, err)
	}
	return keysFromRows(toStrings(resp.Values), s.logger), nil
}

// Append writes records below the last row; the header goes first on an empty tab
func (s *SheetsStore) Append(ctx context.Context, records []contracts.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	head, err := s.service.Spreadsheets.Values.Get(s.sheetID, s.sheetName+"!A1:J1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet header: %w", err)
	}

	values := make([][]interface{}, 0, len(records)+1)
	if len(head.Values) == 0 {
		values = append(values, toCells(contracts.RecordColumns))
	}
	for _, r := range records {
		values = append(values, recordCells(r))
	}

	_, err = s.service.Spreadsheets.Values.Append(s.sheetID, s.dataRange(), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to sheet %s: %w", s.sheetName, err)
	}

	s.logger.WithField("count", len(records)).Info("Appended execution records to sheet")
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// recordCells keeps numbers numeric in the sheet
func recordCells(r contracts.ExecutionRecord) []interface{} {
	return []interface{}{
		r.Date, r.Symbol, r.Score, r.Price, r.StopLoss, r.Target,
		r.Sector, r.DeliveryPct, string(r.Protocol), r.RunID,
	}
}
