package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/mzngo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// globalFlags are shared by every command.
type globalFlags struct {
	driver          string
	logLevel        string
	logFormat       string
	healthcheckPort int
	output          string
	solverDirs      []string
}

type solveFlags struct {
	plan            string
	solver          string
	all             bool
	intermediate    bool
	numSolutions    int
	timeout         time.Duration
	seed            int64
	threads         int
	optLevel        int
	freeSearch      bool
	verbose         bool
	extra           []string
	publishURL      string
	publishInsecure bool
}

// Run parses args, runs the selected command and maps its failure to an
// ExitError. Results go to outW, logs and usage errors to errW.
func Run(ctx context.Context, args []string, outW, errW io.Writer, opts ...app.Option) error {
	root := NewRootCommand(outW, errW, opts...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: app.ExitCode(err), Message: err.Error()}
}

// NewRootCommand builds the command tree.
func NewRootCommand(outW, errW io.Writer, opts ...app.Option) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mzngo",
		Short:         "Solve constraint models with a MiniZinc driver.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.driver, "driver", "", "Path to the driver executable. Defaults to the one found on PATH.")
	pf.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&g.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	pf.StringVarP(&g.output, "output", "o", "text", "Result format. Options: 'text', 'json' or 'yaml'.")
	pf.StringArrayVar(&g.solverDirs, "solver-dir", nil, "Directory searched for .msc solver configurations before the driver's own. Repeatable.")

	newApp := func(cfg app.Config) (*app.App, error) {
		cfg.DriverPath = g.driver
		cfg.LogLevel = g.logLevel
		cfg.LogFormat = g.logFormat
		cfg.HealthcheckPort = g.healthcheckPort
		cfg.Output = g.output
		cfg.SolverDirs = g.solverDirs
		config, err := app.NewConfig(cfg)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
		return app.NewApp(outW, errW, config, opts...), nil
	}

	root.AddCommand(newSolveCommand(newApp), newSolversCommand(newApp), newVersionCommand(newApp))
	return root
}

type appFactory func(app.Config) (*app.App, error)

func newSolveCommand(newApp appFactory) *cobra.Command {
	s := &solveFlags{}
	cmd := &cobra.Command{
		Use:   "solve [flags] [MODEL_FILE...]",
		Short: "Solve a model and print its solutions.",
		Long: `Solve a model and print its solutions.

Model (.mzn), data (.dzn, .json) and checker (.mzc) files are passed as
arguments. A solve plan (--plan) can describe the model, its data and the
solving options instead; flags given on the command line take precedence.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && s.plan == "" {
				return &ExitError{Code: 2, Message: "solve needs a model file or --plan"}
			}
			cfg := app.Config{
				ModelFiles:      args,
				PlanPath:        s.plan,
				Solver:          s.solver,
				PublishURL:      s.publishURL,
				PublishInsecure: s.publishInsecure,
			}
			if err := s.overrides(cmd, &cfg); err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Solve(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&s.plan, "plan", "", "Path to an HCL solve plan.")
	f.StringVar(&s.solver, "solver", "", "Solver id, tag or .msc file. Defaults to the plan's solver, then 'gecode'.")
	f.BoolVarP(&s.all, "all-solutions", "a", false, "Report all solutions of a satisfaction problem.")
	f.BoolVarP(&s.intermediate, "intermediate-solutions", "i", false, "Report intermediate solutions of an optimisation problem.")
	f.IntVarP(&s.numSolutions, "num-solutions", "n", 0, "Stop after this many solutions.")
	f.DurationVar(&s.timeout, "timeout", 0, "Time limit for the solver, e.g. 10s.")
	f.Int64VarP(&s.seed, "random-seed", "r", 0, "Random seed for the solver.")
	f.IntVarP(&s.threads, "threads", "p", 0, "Number of solver threads.")
	f.IntVarP(&s.optLevel, "optimisation-level", "O", 1, "Optimisation level of the compiler (0-5).")
	f.BoolVarP(&s.freeSearch, "free-search", "f", false, "Allow the solver to ignore the search annotations.")
	f.BoolVar(&s.verbose, "verbose-solver", false, "Pass --verbose to the driver.")
	f.StringArrayVar(&s.extra, "flag", nil, "Extra driver flag as name=value, or name for a boolean flag. Repeatable.")
	f.StringVar(&s.publishURL, "publish-url", "", "socket.io endpoint to publish solutions and status to.")
	f.BoolVar(&s.publishInsecure, "publish-insecure", false, "Skip TLS certificate verification for --publish-url.")
	return cmd
}

// overrides copies the solving flags that were given explicitly.
func (s *solveFlags) overrides(cmd *cobra.Command, cfg *app.Config) error {
	f := cmd.Flags()
	o := &cfg.Overrides
	if f.Changed("all-solutions") {
		o.AllSolutions = &s.all
	}
	if f.Changed("intermediate-solutions") {
		o.IntermediateSolutions = &s.intermediate
	}
	if f.Changed("num-solutions") {
		o.NrSolutions = &s.numSolutions
	}
	if f.Changed("timeout") {
		o.Timeout = &s.timeout
	}
	if f.Changed("random-seed") {
		o.Seed = &s.seed
	}
	if f.Changed("threads") {
		o.Threads = &s.threads
	}
	if f.Changed("optimisation-level") {
		o.OptimisationLevel = &s.optLevel
	}
	if f.Changed("free-search") {
		o.FreeSearch = &s.freeSearch
	}
	if f.Changed("verbose-solver") {
		o.Verbose = &s.verbose
	}
	if len(s.extra) > 0 {
		o.Extra = make(map[string]any, len(s.extra))
		for _, kv := range s.extra {
			name, raw, hasValue := strings.Cut(kv, "=")
			if name == "" {
				return &ExitError{Code: 2, Message: fmt.Sprintf("invalid --flag %q: missing name", kv)}
			}
			if !hasValue {
				o.Extra[name] = true
				continue
			}
			o.Extra[name] = parseFlagValue(raw)
		}
	}
	return nil
}

func parseFlagValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func newSolversCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "solvers",
		Short: "List the solvers the driver knows about.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(app.Config{})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Solvers(cmd.Context())
		},
	}
}

func newVersionCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the driver version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(app.Config{})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Version(cmd.Context())
		},
	}
}
