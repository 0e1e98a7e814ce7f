package backend

import (
	"errors"
	"fmt"
	"time"

	"ledgerbot/internal/config"
	"ledgerbot/internal/ledger/google"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	Sheets google.Config

	// CacheSize 0 disables the read cache.
	CacheSize int
	CacheTTL  time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		Sheets: google.Config{
			SpreadsheetID:   appConfig.GoogleSheetID,
			Worksheet:       appConfig.GoogleWorksheetName,
			CredentialsJSON: appConfig.GoogleCredentialsJSON,
			CredentialsFile: appConfig.GoogleCredentialsFile,
		},
		CacheSize: appConfig.CacheSize,
		CacheTTL:  appConfig.CacheTTL,
	}, nil
}

// Validate checks that the selected backend has what it needs to start.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("missing DATABASE_URL for postgres backend")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("missing GOOGLE_SHEET_ID for sheets backend")
		}
		if c.Sheets.CredentialsJSON == "" && c.Sheets.CredentialsFile == "" {
			return errors.New("missing GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS for sheets backend")
		}
	case MemoryBackend:
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SheetsBackend, SQLiteBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
