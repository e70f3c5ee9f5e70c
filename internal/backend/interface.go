package backend

import (
	"context"

	"expensify/internal/records"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the record store instance and optional cleanup function
type Result struct {
	Store   records.Store
	Cleanup CleanupFunc
}

// Factory creates record stores based on configuration
type Factory interface {
	// CreateStore creates a record store based on the provided config
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type Type

	// Airtable specific
	AirtableAPIKey    string
	AirtableBaseID    string
	AirtableTableName string

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// SQLite specific
	SQLiteDBPath string
}

// Type represents the type of record store backend
type Type string

const (
	AirtableBackend Type = "airtable"
	SheetsBackend   Type = "sheets"
	SQLiteBackend   Type = "sqlite"
	MemoryBackend   Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case AirtableBackend, SheetsBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
