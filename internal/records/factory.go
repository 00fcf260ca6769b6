package records

import (
	"context"
	"fmt"
	"io"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/config"
	"github.com/wonny/diamond/pkg/database"
	"github.com/wonny/diamond/pkg/logger"
)

// New builds the RecordStore selected by RECORD_STORE.
// The returned closer releases the backend's resources.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.RecordStore, io.Closer, error) {
	switch cfg.RecordStore {
	case "sqlite":
		store, err := NewSQLiteStore(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case "postgres":
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewPostgresStore(ctx, db, log)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, closerFunc(func() error { db.Close(); return nil }), nil

	case "sheets":
		store, err := NewSheetsStore(ctx, cfg.Sheets, log)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil

	case "xlsx":
		return NewXLSXStore(cfg.XLSXPath, log), nopCloser{}, nil

	case "none":
		return Noop{}, nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
