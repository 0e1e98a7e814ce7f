package backend

import (
	"context"

	"ledgerbot/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function
type BackendResult struct {
	Store   ledger.Store
	Type    BackendType
	Cleanup CleanupFunc
	// Cause is set when Store is an offline placeholder.
	Cause error
}

// Offline reports whether the configured backend failed to initialise.
func (r *BackendResult) Offline() bool { return r.Cause != nil }

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SheetsBackend   BackendType = "sheets"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
