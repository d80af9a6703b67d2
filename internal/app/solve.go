package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/internal/plan"
	"github.com/vk/mzngo/internal/publish"
	"github.com/vk/mzngo/model"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/session"
)

// Solve runs the configured model to completion and renders its result.
// A cancelled ctx stops the solver; the solutions found so far are still
// rendered before the cancellation error is returned.
func (a *App) Solve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Solve method started.")
	if err := a.config.RequireModel(); err != nil {
		return err
	}

	if err := a.startHealthcheckServer(); err != nil {
		return err
	}
	defer a.closeHealthcheckServer()

	m, p, err := a.buildModel(ctx)
	if err != nil {
		return err
	}

	drv, err := a.Driver(ctx)
	if err != nil {
		return err
	}
	tag := a.config.Solver
	if tag == "" && p != nil {
		tag = p.Solver
	}
	if tag == "" {
		tag = DefaultSolver
	}
	cfg, err := a.resolveSolver(ctx, drv, tag)
	if err != nil {
		return err
	}

	opts := session.Options{Solver: cfg}
	if p != nil {
		p.Options.Apply(&opts)
	}
	a.config.Overrides.Apply(&opts)

	// Connect before the driver starts; its updates are only read once the
	// publisher exists.
	id := uuid.New()
	var pub *publish.Publisher
	if a.config.PublishURL != "" {
		pub, err = publish.Dial(ctx, publish.Config{
			URL:                a.config.PublishURL,
			InsecureSkipVerify: a.config.PublishInsecure,
		}, id.String())
		if err != nil {
			return err
		}
		defer pub.Close()
	}

	sessionOpts := append([]session.Option{session.WithID(id)}, a.sessionOpts...)
	s, err := session.Start(ctx, drv, m, opts, sessionOpts...)
	if err != nil {
		return err
	}
	a.logger.Info("▶️ Solving", "solver", cfg.ID, "session_id", s.ID())

	a.consume(ctx, s, pub)
	res, runErr := s.Wait()
	if pub != nil {
		if err := pub.Done(res, runErr); err != nil {
			a.logger.Warn("Failed to publish the final status", "error", err)
		}
	}

	if res != nil {
		if err := renderResult(a.outW, a.config.Output, res); err != nil {
			return errors.Join(runErr, err)
		}
		a.logger.Info("🏁 Solving finished", "status", res.Status.String(), "solutions", len(res.Solutions), "elapsed", res.Elapsed.Round(time.Millisecond))
	}
	if runErr != nil {
		return runErr
	}
	if res != nil && res.Err != nil {
		return res.Err
	}
	return nil
}

// consume reads the session's updates until it closes them, forwarding each
// to the publisher when there is one.
func (a *App) consume(ctx context.Context, s *session.Session, pub *publish.Publisher) {
	if pub != nil {
		pub.Forward(ctx, logUpdates(a, s.Updates()))
		return
	}
	for range logUpdates(a, s.Updates()) {
	}
}

func logUpdates(a *App, in <-chan session.Update) <-chan session.Update {
	out := make(chan session.Update)
	go func() {
		defer close(out)
		for u := range in {
			switch {
			case u.Err != nil:
				a.logger.Warn("Solution could not be decoded", "error", u.Err)
			case u.Solution != nil:
				a.logger.Debug("Solution received.", "index", u.Solution.Index, "time", u.Solution.Time)
			}
			out <- u
		}
	}()
	return out
}

// buildModel assembles the model from the plan, if any, and the files given
// on the command line.
func (a *App) buildModel(ctx context.Context) (*model.Model, *plan.Plan, error) {
	var (
		m   *model.Model
		p   *plan.Plan
		err error
	)
	if a.config.PlanPath != "" {
		p, err = plan.Load(ctx, a.config.PlanPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load plan: %w", err)
		}
		m, err = p.Model()
		if err != nil {
			return nil, nil, err
		}
		for _, f := range a.config.ModelFiles {
			if err := m.AddFile(f); err != nil {
				return nil, nil, err
			}
		}
		a.logger.Debug("Plan loaded.", "path", p.Path, "files", len(p.Files), "data", len(p.DataNames))
		return m, p, nil
	}
	m, err = model.New(a.config.ModelFiles...)
	if err != nil {
		return nil, nil, err
	}
	return m, nil, nil
}

// ExitCode maps an error returned by the app to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, mznerr.ErrConfiguration):
		return 2
	case errors.Is(err, mznerr.ErrModel), errors.Is(err, mznerr.ErrTypeMismatch):
		return 3
	case errors.Is(err, mznerr.ErrProcess):
		return 4
	case errors.Is(err, mznerr.ErrCancelled):
		return 130
	default:
		return 1
	}
}
