package backend

import (
	"context"
	"fmt"

	"ledgerbot/internal/ledger"
	"ledgerbot/internal/ledger/cached"
	"ledgerbot/internal/ledger/google"
	"ledgerbot/internal/ledger/memory"
	"ledgerbot/internal/log"
	"ledgerbot/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

var _ Factory = (*DefaultFactory)(nil)

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the configured store, wrapped in the read cache when
// one is configured.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   ledger.Store
		cleanup CleanupFunc = func() error { return nil }
	)
	switch config.Type {
	case MemoryBackend:
		store = memory.NewStore()
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store, cleanup = repo, repo.Close
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		store, cleanup = repo, repo.Close
	case SheetsBackend:
		client, err := google.New(ctx, config.Sheets, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		store = client
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.CacheSize > 0 && config.Type != MemoryBackend {
		cs := cached.New(store, config.CacheSize, config.CacheTTL, f.logger)
		cs.StartSweeping(config.CacheTTL)
		closeStore := cleanup
		cleanup = func() error {
			_ = cs.Close()
			return closeStore()
		}
		store = cs
	}

	f.logger.InfoContext(ctx, "Initialized ledger backend",
		log.FieldBackend, config.Type.String(),
		"cache_size", config.CacheSize)

	return &BackendResult{Store: store, Type: config.Type, Cleanup: cleanup}, nil
}

// Open is CreateBackend that never fails: when the backend cannot be built
// the result holds an offline store so the bot can still tell users.
func (f *DefaultFactory) Open(ctx context.Context, config Config) *BackendResult {
	res, err := f.CreateBackend(ctx, config)
	if err == nil {
		return res
	}
	f.logger.ErrorContext(ctx, "Ledger backend unavailable, continuing offline",
		log.FieldBackend, config.Type.String(),
		log.FieldError, err)
	return OfflineResult(config.Type, err)
}

// OfflineResult wraps cause in an offline store with a no-op cleanup.
func OfflineResult(t BackendType, cause error) *BackendResult {
	return &BackendResult{
		Store:   ledger.Offline{Cause: cause},
		Type:    t,
		Cleanup: func() error { return nil },
		Cause:   cause,
	}
}
