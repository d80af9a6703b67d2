package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/internal/telemetry"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/solver"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Driver is a handle on one installed driver executable.
type Driver struct {
	executable  string
	version     string
	versionText string
	launcher    Launcher

	mu      sync.Mutex
	solvers *solver.Registry
	checked map[*solver.Config]error
}

// Option configures a Driver.
type Option func(*Driver)

// WithLauncher replaces the os/exec launcher.
func WithLauncher(l Launcher) Option {
	return func(d *Driver) { d.launcher = l }
}

// New creates a driver for executable. It runs `--version` once and rejects
// drivers older than MinVersion with a ConfigurationError.
func New(ctx context.Context, executable string, opts ...Option) (*Driver, error) {
	d := &Driver{
		executable: executable,
		launcher:   ExecLauncher{},
		checked:    make(map[*solver.Config]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	if _, ok := d.launcher.(ExecLauncher); ok {
		path, err := exec.LookPath(executable)
		if err != nil {
			return nil, mznerr.Configurationf("no driver executable was found at %q", executable)
		}
		d.executable = path
	}

	out, err := d.Run(ctx, []string{"--version"}, nil)
	if err != nil {
		return nil, fmt.Errorf("querying driver version: %w", err)
	}
	d.versionText = strings.TrimSpace(string(out.Stdout))
	v, err := ParseVersion(d.versionText)
	if err != nil {
		return nil, err
	}
	if !AtLeast(v, MinVersion) {
		return nil, mznerr.Configurationf("the driver found at %q has version %s; the minimal required version is %s",
			d.executable, v, MinVersion)
	}
	d.version = v
	ctxlog.FromContext(ctx).Debug("Driver initialized.", "executable", d.executable, "version", v)
	return d, nil
}

// Executable returns the resolved executable path.
func (d *Driver) Executable() string { return d.executable }

// Version returns the canonical semantic version, e.g. "v2.8.3".
func (d *Driver) Version() string { return d.version }

// VersionText returns the full --version output.
func (d *Driver) VersionText() string { return d.versionText }

// JSONStream reports whether the driver speaks the --json-stream protocol.
func (d *Driver) JSONStream() bool { return AtLeast(d.version, JSONStreamVersion) }

// Launcher returns the launcher processes are started with.
func (d *Driver) Launcher() Launcher { return d.launcher }

// Command builds the invocation for args. A non-empty solverArg is passed
// via --solver.
func (d *Driver) Command(solverArg string, args []string) Command {
	full := make([]string, 0, len(args)+4)
	if solverArg != "" {
		full = append(full, "--solver", solverArg)
	}
	full = append(full, "--allow-multiple-assignments")
	full = append(full, args...)
	if d.version != "" && d.JSONStream() {
		full = append(full, "--json-stream")
	}
	return Command{Path: d.executable, Args: full}
}

// Output is the captured result of a synchronous run.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Run executes the driver to completion. A non-zero exit is reported as the
// first structured error on stdout, or else as an error classified from
// stderr. Cancelling ctx kills the process.
func (d *Driver) Run(ctx context.Context, args []string, cfg *solver.Config) (*Output, error) {
	ctx, span := telemetry.StartSpan(ctx, "driver.Run", attribute.StringSlice("args", args))
	defer span.End()

	solverArg := ""
	if cfg != nil {
		arg, cleanup, err := cfg.Materialise("")
		if err != nil {
			return nil, err
		}
		defer cleanup()
		solverArg = arg
	}
	cmd := d.Command(solverArg, args)
	ctxlog.FromContext(ctx).Debug("Running driver.", "path", cmd.Path, "args", strings.Join(cmd.Args, " "))

	proc, err := d.launcher.Start(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		return nil, &mznerr.ProcessFailure{ExitCode: -1, Stderr: err.Error()}
	}

	stop := context.AfterFunc(ctx, func() { _ = proc.Kill() })
	defer stop()

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error { _, err := io.Copy(&stdout, proc.Stdout()); return err })
	g.Go(func() error { _, err := io.Copy(&stderr, proc.Stderr()); return err })
	readErr := g.Wait()
	code, waitErr := proc.Wait()
	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: code}

	if ctx.Err() != nil {
		return out, fmt.Errorf("%w: %w", mznerr.ErrCancelled, ctx.Err())
	}
	if readErr != nil {
		return out, fmt.Errorf("reading driver output: %w", readErr)
	}
	if waitErr != nil {
		return out, fmt.Errorf("waiting for driver: %w", waitErr)
	}
	if code != 0 {
		if d.version != "" && d.JSONStream() {
			if err := protocol.FirstError(out.Stdout); err != nil {
				span.RecordError(err)
				return out, err
			}
		}
		err := protocol.ClassifyStderr(out.Stderr, code)
		span.RecordError(err)
		return out, err
	}
	return out, nil
}

// AvailableSolvers returns the solvers the driver knows about. The list is
// cached; refresh forces a new `--solvers-json` query.
func (d *Driver) AvailableSolvers(ctx context.Context, refresh bool) (*solver.Registry, error) {
	d.mu.Lock()
	cached := d.solvers
	d.mu.Unlock()
	if cached != nil && !refresh {
		return cached, nil
	}

	out, err := d.Run(ctx, []string{"--solvers-json"}, nil)
	if err != nil {
		return nil, fmt.Errorf("listing solvers: %w", err)
	}
	reg, err := solver.ParseSolversJSON(out.Stdout)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.solvers = reg
	d.mu.Unlock()
	return reg, nil
}

// Lookup resolves a solver tag against the available solvers.
func (d *Driver) Lookup(ctx context.Context, tag string) (*solver.Config, error) {
	reg, err := d.AvailableSolvers(ctx, false)
	if err != nil {
		return nil, err
	}
	return reg.Lookup(tag)
}

// Check verifies once per configuration that this driver can use cfg. The
// outcome is cached, so later calls with the same *Config are free.
func (d *Driver) Check(cfg *solver.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.checked[cfg]; ok {
		return err
	}
	err := d.check(cfg)
	d.checked[cfg] = err
	return err
}

func (d *Driver) check(cfg *solver.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IsGUIApplication {
		return mznerr.Configurationf("solver %q is a GUI application and cannot be driven", cfg.ID)
	}
	if !cfg.SupportsMzn && !cfg.SupportsFzn && !cfg.SupportsNL {
		return mznerr.Configurationf("solver %q accepts no input format", cfg.ID)
	}
	if cfg.Identifier() == "" && cfg.Executable != "" {
		if _, ok := d.launcher.(ExecLauncher); ok {
			if _, err := os.Stat(cfg.Executable); err != nil {
				return mznerr.Configurationf("executable %q of solver %q does not exist", cfg.Executable, cfg.ID)
			}
		}
	}
	return nil
}
