package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensify/internal/records/airtable"
	"expensify/internal/records/memory"
	"expensify/internal/records/sheets"
	"expensify/internal/records/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case AirtableBackend:
		return f.createAirtableStore(config)
	case SheetsBackend:
		return f.createSheetsStore(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteStore(config)
	case MemoryBackend:
		return f.createMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAirtableStore(config Config) (*Result, error) {
	store, err := airtable.New(airtable.Config{
		APIKey:    config.AirtableAPIKey,
		BaseID:    config.AirtableBaseID,
		TableName: config.AirtableTableName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Airtable store: %w", err)
	}

	f.logger.Info("Initialized Airtable backend",
		"base_id", config.AirtableBaseID,
		"table", config.AirtableTableName)

	return &Result{Store: store}, nil
}

func (f *DefaultFactory) createSheetsStore(ctx context.Context, config Config) (*Result, error) {
	store, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID: config.GoogleSpreadsheetID,
		SheetName:     config.GoogleSheetName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets store: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &Result{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (*Result, error) {
	store, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryStore() (*Result, error) {
	f.logger.Info("Initialized memory backend")
	return &Result{Store: memory.New()}, nil
}
