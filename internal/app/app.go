package app

import (
	"io"
	"log/slog"

	"github.com/karst-sim/karst/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	logger   *slog.Logger
	config   *Config
	registry *registry.Table
}

// New is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, writing to
// logW, and its own evaluator registry.
func New(logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		logger:   logger,
		config:   cfg,
		registry: registry.Default(),
	}
}

// Registry returns the application's evaluator registry. This is
// primarily for testing.
func (a *App) Registry() *registry.Table { return a.registry }
