package app

import (
	"io"
	"net/http"

	"github.com/vk/wrangler/internal/config"
	"github.com/vk/wrangler/internal/verbs"
	"go.uber.org/zap"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *zap.SugaredLogger
	config     *Config
	registry   *verbs.Registry
	loaders    config.Loaders
	httpServer *http.Server
}

// NewApp builds an App with its own logger writing to logW and its own verb
// registry. Results are written to outW.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...verbs.Module) *App {
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debugw("Logger configured successfully.")

	reg := verbs.Default(coreModules(cfg, modules)...)
	logger.Debugw("Verbs registered.", "count", len(reg.Verbs()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		loaders:  defaultLoaders(),
	}
}

// Registry returns the application's verb registry. This is primarily for testing.
func (a *App) Registry() *verbs.Registry {
	return a.registry
}

// Logger returns the application's logger.
func (a *App) Logger() *zap.SugaredLogger {
	return a.logger
}
