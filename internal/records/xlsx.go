package records

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/logger"
)

// XLSXSheet is the worksheet holding the history rows
const XLSXSheet = "history"

// XLSXStore keeps execution history in a local workbook
type XLSXStore struct {
	path   string
	mu     sync.Mutex
	logger *logger.Logger
}

// NewXLSXStore creates a workbook-backed store; the file is created on first append
func NewXLSXStore(path string, log *logger.Logger) *XLSXStore {
	return &XLSXStore{path: path, logger: log.WithModule("records.xlsx")}
}

// open loads the workbook or starts a new one with the header row
func (s *XLSXStore) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(XLSXSheet); idx < 0 {
			if _, err := f.NewSheet(XLSXSheet); err != nil {
				f.Close()
				return nil, err
			}
		}
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}

	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", XLSXSheet); err != nil {
		f.Close()
		return nil, err
	}
	header := toCells(contracts.RecordColumns)
	if err := f.SetSheetRow(XLSXSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// ReadExistingKeys returns the keys of every well-formed row
func (s *XLSXStore) ReadExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return map[string]struct{}{}, nil
	}

	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(XLSXSheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return keysFromRows(rows, s.logger), nil
}

// Append writes records after the last row and replaces the file atomically
func (s *XLSXStore) Append(ctx context.Context, records []contracts.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(XLSXSheet)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	next := len(rows) + 1
	for _, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		values := recordCells(r)
		if err := f.SetSheetRow(XLSXSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", next, err)
		}
		next++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return err
	}

	s.logger.WithField("count", len(records)).Debug("Appended execution records")
	return nil
}
