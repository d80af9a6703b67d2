package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/session"
	"github.com/vk/mzngo/solver"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	httpServer *http.Server

	driverOpts  []driver.Option
	sessionOpts []session.Option
	drv         *driver.Driver
}

// Option customises an App.
type Option func(*App)

// WithDriverOptions passes options to the driver the app creates.
func WithDriverOptions(opts ...driver.Option) Option {
	return func(a *App) { a.driverOpts = append(a.driverOpts, opts...) }
}

// WithSessionOptions passes options to every session the app starts.
func WithSessionOptions(opts ...session.Option) Option {
	return func(a *App) { a.sessionOpts = append(a.sessionOpts, opts...) }
}

// NewApp is the constructor for the main application. Results are written
// to outW, logs to logW through the app's own isolated logger.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Driver resolves the driver once: the configured executable, or the
// process-wide default found on PATH.
func (a *App) Driver(ctx context.Context) (*driver.Driver, error) {
	if a.drv != nil {
		return a.drv, nil
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)

	var (
		drv *driver.Driver
		err error
	)
	switch {
	case a.config.DriverPath != "":
		drv, err = driver.New(ctx, a.config.DriverPath, a.driverOpts...)
	case len(a.driverOpts) > 0:
		drv, err = driver.FindDriver(ctx, a.driverOpts...)
	default:
		drv, err = driver.Default(ctx)
	}
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Driver resolved.", "executable", drv.Executable(), "version", drv.Version())
	a.drv = drv
	return drv, nil
}

// registry returns the solvers found in the configured solver directories
// followed by the driver's own.
func (a *App) registry(ctx context.Context, drv *driver.Driver) (*solver.Registry, error) {
	reg, err := drv.AvailableSolvers(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(a.config.SolverDirs) == 0 {
		return reg, nil
	}
	local, err := solver.LoadDirs(a.config.SolverDirs...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Solver directories searched.", "dirs", a.config.SolverDirs, "found", len(local.All()))
	return local.Merge(reg), nil
}

// resolveSolver accepts a path to a .msc file or a solver tag.
func (a *App) resolveSolver(ctx context.Context, drv *driver.Driver, tag string) (*solver.Config, error) {
	if strings.HasSuffix(tag, solver.ConfigExt) {
		return solver.Load(tag)
	}
	reg, err := a.registry(ctx, drv)
	if err != nil {
		return nil, err
	}
	return reg.Lookup(tag)
}

// Version prints the driver's version banner.
func (a *App) Version(ctx context.Context) error {
	drv, err := a.Driver(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.outW, strings.TrimSpace(drv.VersionText()))
	return nil
}

// Solvers prints the driver's solver registry.
func (a *App) Solvers(ctx context.Context) error {
	drv, err := a.Driver(ctx)
	if err != nil {
		return err
	}
	reg, err := a.registry(ctxlog.WithLogger(ctx, a.logger), drv)
	if err != nil {
		return err
	}
	return renderSolvers(a.outW, a.config.Output, reg.All())
}

// Close releases what the app started.
func (a *App) Close() error {
	return a.closeHealthcheckServer()
}
