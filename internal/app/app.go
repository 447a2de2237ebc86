package app

import (
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/spf13/afero"
	"github.com/vk/tilegraph/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
	fs       afero.Fs

	// tilesDone is reported by the health check while a grid is evaluated.
	tilesDone  atomic.Int64
	tilesTotal atomic.Int64
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry. Graph
// files are read from fs; a nil fs means the OS filesystem. Without modules
// the core node kinds are registered.
func NewApp(outW io.Writer, cfg *Config, fs afero.Fs, modules ...registry.Module) *App {
	logger := newLogger(cfg, outW)
	logger.Debug("Logger configured successfully.")

	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.NewWith(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", reg.Kinds())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
		fs:       fs,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
