// Package cli provides common CLI initialization utilities for
// cmd/bookkeeper.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bookkeeper/internal/backend"
	"bookkeeper/internal/config"
	"bookkeeper/internal/log"
	"bookkeeper/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := config.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App bundles the opened store with the services built on it.
type App struct {
	Backend    *backend.BackendResult
	Categories *services.CategoryService
	Expenses   *services.ExpenseService
	Budgets    *services.BudgetService
}

// Close releases the store.
func (a *App) Close() error {
	if a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// InitApp opens the configured store, wires the services and seeds the
// root category and default budget limits.
func InitApp(ctx context.Context, logger *log.Logger, cfg *config.Config) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}

	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Backend:    result,
		Categories: services.NewCategoryService(result.Store, cfg.RootCategory),
		Expenses:   services.NewExpenseService(result.Store),
		Budgets:    services.NewBudgetService(result.Store, nil),
	}

	if _, err := app.Categories.EnsureRoot(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("seed root category: %w", err)
	}
	if err := app.Budgets.EnsureDefaults(ctx, cfg.DefaultLimits()); err != nil {
		app.Close()
		return nil, fmt.Errorf("seed default budgets: %w", err)
	}

	logger.InfoContext(ctx, "Bookkeeper ready",
		log.FieldOperation, log.OpStartup,
		log.FieldBackend, backendCfg.Type.String())
	return app, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
