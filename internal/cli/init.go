// Package cli provides the initialization steps every ledgerbot command
// shares: .env loading, configuration, logging, signals and the backend.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledgerbot/internal/backend"
	"ledgerbot/internal/config"
	"ledgerbot/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given level, writing text
// records to w, and installs it as the slog default.
func SetupLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewText(w, level)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment, applies
// overrides (command-line flags) and validates the result.
func LoadAndValidateConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg := config.Load()
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend builds the configured ledger store. It never fails: a backend
// that cannot start is replaced by an offline store and logged.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", log.FieldError, err)
		return backend.OfflineResult(backend.BackendType(cfg.DataBackend), err)
	}
	return backend.NewFactory(logger).Open(ctx, bcfg)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. Call the
// returned cancel function to release the signal handler.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
