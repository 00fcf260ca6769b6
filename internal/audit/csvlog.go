package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// csvLog is an append-only CSV file whose header is written once
type csvLog struct {
	path   string
	header []string
	mu     sync.Mutex
}

func (l *csvLog) append(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	writeHeader := false
	if info, err := os.Stat(l.path); err != nil || info.Size() == 0 {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(l.path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(l.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("append %s: %w", filepath.Base(l.path), err)
	}
	return f.Sync()
}

// readAll returns every data row (header excluded)
func (l *csvLog) readAll() ([][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(l.path), err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == l.header[0] {
		rows = rows[1:]
	}
	return rows, nil
}
