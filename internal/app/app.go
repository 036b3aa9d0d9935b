package app

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	logpkg "argoya/internal/log"
	"argoya/internal/telemetry"
)

// App is the running client: configuration, logger, metrics and the wired
// services, plus whatever must be flushed on exit.
type App struct {
	*Wire
	Config *Config
	Log    zerolog.Logger

	logCloser       io.Closer
	metricsShutdown func(context.Context) error
}

// New builds an App from cfg. Call Close when done.
func New(cfg *Config) (*App, error) {
	logCfg := cfg.Log
	logCfg.Component = "client"
	logger, closer := logpkg.New(logCfg)

	metrics, shutdown, err := telemetry.Setup(cfg.Metrics)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	return &App{
		Wire:            NewWire(cfg, logger, metrics, nil),
		Config:          cfg,
		Log:             logger,
		logCloser:       closer,
		metricsShutdown: shutdown,
	}, nil
}

// Close leaves any active session, then flushes metrics and the log.
func (a *App) Close(ctx context.Context) error {
	leaveErr := a.Lifecycle.Leave(ctx)
	return errors.Join(leaveErr, a.metricsShutdown(ctx), a.logCloser.Close())
}
