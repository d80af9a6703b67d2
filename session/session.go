package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/internal/telemetry"
	"github.com/vk/mzngo/model"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/result"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// State is a session's lifecycle position.
type State int32

const (
	Building State = iota
	Spawned
	Streaming
	Drained
	Terminated
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Spawned:
		return "spawned"
	case Streaming:
		return "streaming"
	case Drained:
		return "drained"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Update is one event of a running session, in stream order. Solution is
// set when the event produced a typed solution; Err when it was rejected.
type Update struct {
	Event    protocol.Event
	Solution *result.Solution
	Err      error
}

// Session is one running invocation of the driver.
type Session struct {
	id      string
	log     *slog.Logger
	span    trace.Span
	proc    driver.Process
	art     *artifacts
	ctrl    *controller
	dec     protocol.Decoder
	asm     *result.Assembler
	started time.Time

	state        atomic.Int32
	terminations atomic.Int32
	sawFatal     bool

	updates    chan Update
	detached   chan struct{}
	detachOnce sync.Once
	finishOnce sync.Once
	done       chan struct{}

	res *result.Result
	err error
}

// Solve runs m to completion and returns its result. A cancelled ctx stops
// the driver; the solutions found until then are returned together with an
// error matching mznerr.ErrCancelled.
func Solve(ctx context.Context, drv *driver.Driver, m *model.Model, opts Options, options ...Option) (*result.Result, error) {
	s, err := Start(ctx, drv, m, opts, options...)
	if err != nil {
		return nil, err
	}
	for range s.Updates() {
	}
	return s.Wait()
}

// Start checks opts against the solver, analyses m, writes the input files
// and spawns the driver. Configuration problems are reported before any
// solving process is started. The session snapshots m; later changes to m
// do not affect it.
func Start(ctx context.Context, drv *driver.Driver, m *model.Model, opts Options, options ...Option) (*Session, error) {
	set := newSettings(options)
	if err := opts.Validate(); err != nil {
		telemetry.PreflightRejected()
		return nil, err
	}
	if set.id == uuid.Nil {
		set.id = uuid.New()
	}
	id := set.id.String()
	ctx, log := ctxlog.With(ctx, "session_id", id, "solver", opts.Solver.ID)

	if err := drv.Check(opts.Solver); err != nil {
		telemetry.PreflightRejected()
		return nil, err
	}
	if err := checkCapabilities(opts.Solver, opts); err != nil {
		telemetry.PreflightRejected()
		return nil, err
	}

	snapshot := m.Clone()
	prefix := "mzngo_" + id[:8]
	iface := set.iface
	if iface == nil {
		var err error
		if iface, err = analyse(ctx, drv, snapshot, opts.Solver, set.tempDir, prefix); err != nil {
			return nil, err
		}
	}
	if err := checkMethod(iface.Method, opts); err != nil {
		telemetry.PreflightRejected()
		return nil, err
	}
	schema := snapshot.Output()
	if schema == nil {
		schema = iface.Output
	}

	rendered, err := snapshot.Render()
	if err != nil {
		return nil, err
	}
	art, err := materialise(rendered, opts.Solver, set.tempDir, prefix)
	if err != nil {
		return nil, err
	}
	cmd := drv.Command(art.solverArg, append(buildArgs(opts), art.files...))

	_, span := telemetry.StartSpan(ctx, "session.Run",
		attribute.String("session_id", id),
		attribute.String("solver", opts.Solver.ID),
		attribute.String("method", iface.Method.String()),
	)
	log.Info("▶️ Starting session")
	log.Debug("Spawning driver.", "path", cmd.Path, "args", cmd.Args)
	proc, err := drv.Launcher().Start(ctx, cmd)
	if err != nil {
		art.release()
		span.RecordError(err)
		span.End()
		return nil, &mznerr.ProcessFailure{ExitCode: -1, Stderr: err.Error()}
	}
	telemetry.SessionStarted()

	s := &Session{
		id:       id,
		log:      log,
		span:     span,
		proc:     proc,
		art:      art,
		ctrl:     newController(proc, set.grace, log),
		asm:      result.NewAssembler(result.NewDecoder(schema, snapshot.Enums())),
		started:  time.Now(),
		updates:  make(chan Update, set.buffer),
		detached: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if drv.JSONStream() {
		s.dec = protocol.NewJSONStreamDecoder(proc.Stdout(), set.chunk)
	} else {
		s.dec = protocol.NewTextDecoder(proc.Stdout(), set.chunk, iface.Method)
	}
	s.state.Store(int32(Spawned))

	var deadline time.Duration
	if opts.Timeout > 0 {
		deadline = opts.Timeout + set.slack
	}
	go s.ctrl.watch(ctx, deadline)
	go s.run(ctx)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Updates returns the ordered event channel. It is closed when the session
// terminates.
func (s *Session) Updates() <-chan Update { return s.updates }

// Stop asks the driver to finish early. The driver may still report the
// best solution it has; it is killed if it does not exit within the grace
// period.
func (s *Session) Stop() { s.ctrl.stop(StopRequested) }

// Done is closed once the session has terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session has terminated and returns its result.
// Updates not yet received are discarded from then on.
func (s *Session) Wait() (*result.Result, error) {
	s.detachOnce.Do(func() { close(s.detached) })
	<-s.done
	return s.res, s.err
}

func (s *Session) run(ctx context.Context) {
	s.state.Store(int32(Streaming))

	var stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stderr, s.proc.Stderr())
		return err
	})
	g.Go(s.readEvents)
	streamErr := g.Wait()
	code, waitErr := s.proc.Wait()
	s.ctrl.markExited()
	s.state.Store(int32(Drained))

	for _, w := range protocol.ScanWarnings(stderr.Bytes()) {
		s.apply(w)
	}
	reason, killed := s.ctrl.outcome()
	failed := code != 0 && reason == NotStopped
	if !s.sawFatal && (failed || s.asm.Status() == result.Error) {
		s.apply(protocol.Error{Err: protocol.ClassifyStderr(stderr.Bytes(), code), Fatal: true})
	}
	s.apply(protocol.EndOfStream{ExitCode: code})
	s.asm.SetElapsed(time.Since(s.started))

	res := s.asm.Result()
	var err error
	switch {
	case streamErr != nil:
		err = fmt.Errorf("reading driver output: %w", streamErr)
	case waitErr != nil:
		err = fmt.Errorf("waiting for driver: %w", waitErr)
	case res.Err != nil:
		err = res.Err
	case reason == StopCancelled:
		err = fmt.Errorf("%w: %w", mznerr.ErrCancelled, context.Cause(ctx))
	}
	if err != nil && res.Err == nil {
		res.Err = err
	}
	s.finish(res, err, reason, killed, code)
}

// readEvents decodes stdout until EOF. After a read failure the rest of the
// stream is discarded so the driver never blocks on a full pipe.
func (s *Session) readEvents() error {
	for {
		ev, err := s.dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			_, _ = io.Copy(io.Discard, s.proc.Stdout())
			return err
		}
		s.apply(ev)
	}
}

// apply feeds one event to the assembler and publishes it.
func (s *Session) apply(ev protocol.Event) {
	if e, ok := ev.(protocol.Error); ok && e.Fatal {
		s.sawFatal = true
		s.log.Error("Driver reported an error.", "error", e.Err)
		s.ctrl.stop(StopFatal)
	}
	sol, err := s.asm.Apply(ev)
	switch {
	case err != nil:
		s.log.Warn("Solution rejected.", "error", err)
	case sol != nil:
		telemetry.SolutionFound()
		s.log.Debug("Solution found.", "index", sol.Index)
	}
	select {
	case s.updates <- Update{Event: ev, Solution: sol, Err: err}:
	case <-s.detached:
	}
}

// finish moves the session to Terminated. Only the first call counts.
func (s *Session) finish(res *result.Result, err error, reason StopReason, killed bool, code int) {
	s.finishOnce.Do(func() {
		s.art.release()
		s.res, s.err = res, err
		s.state.Store(int32(Terminated))
		s.terminations.Add(1)

		outcome := "completed"
		switch {
		case reason != NotStopped && reason != StopFatal:
			outcome = "stopped"
		case err != nil:
			outcome = "failed"
		}
		telemetry.SessionFinished(res.Status.String(), outcome, res.Elapsed)
		s.span.SetAttributes(
			attribute.String("status", res.Status.String()),
			attribute.Int("solutions", len(res.Solutions)),
			attribute.Int("exit_code", code),
		)
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
		s.span.End()

		s.log.Info("✅ Session finished",
			"status", res.Status,
			"solutions", len(res.Solutions),
			"exit_code", code,
			"stop", reason,
			"killed", killed,
			"elapsed", res.Elapsed,
		)
		close(s.updates)
		close(s.done)
	})
}
