package testutil

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mzngo/driver"
)

// Script describes how a fake driver process behaves.
type Script struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Hold keeps the process alive after its output until it is interrupted
	// or killed.
	Hold bool
	// IgnoreInterrupt makes a held process ignore Interrupt, so only Kill
	// ends it.
	IgnoreInterrupt bool
	// Tail is written to stdout when a held process honours an interrupt.
	Tail string
	// InterruptExitCode is the exit code after an honoured interrupt.
	InterruptExitCode int
}

// VersionText is the --version output of fake drivers.
func VersionText(version string) string {
	return "MiniZinc to FlatZinc converter, version " + version + ", build 1\nCopyright (C) 2014-2025 Monash University\n"
}

// FakeLauncher implements driver.Launcher with scripted processes.
type FakeLauncher struct {
	// Version answers --version invocations; empty means "2.8.3".
	Version string
	// Respond picks the script for every other invocation.
	Respond func(cmd driver.Command) Script
	// StartErr, when set, fails every non-version start.
	StartErr error

	mu        sync.Mutex
	commands  []driver.Command
	processes []*FakeProcess
}

// Start implements driver.Launcher.
func (f *FakeLauncher) Start(_ context.Context, cmd driver.Command) (driver.Process, error) {
	var script Script
	if slices.Contains(cmd.Args, "--version") {
		v := f.Version
		if v == "" {
			v = "2.8.3"
		}
		script = Script{Stdout: VersionText(v)}
	} else {
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()
		if f.StartErr != nil {
			return nil, f.StartErr
		}
		if f.Respond != nil {
			script = f.Respond(cmd)
		}
	}
	p := newFakeProcess(script)
	f.mu.Lock()
	f.processes = append(f.processes, p)
	f.mu.Unlock()
	go p.run()
	return p, nil
}

// Commands returns every non-version invocation so far.
func (f *FakeLauncher) Commands() []driver.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]driver.Command(nil), f.commands...)
}

// Spawned returns the number of non-version invocations.
func (f *FakeLauncher) Spawned() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

// Last returns the most recently started process.
func (f *FakeLauncher) Last() *FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.processes) == 0 {
		return nil
	}
	return f.processes[len(f.processes)-1]
}

// NewFakeDriver builds a driver around a fake launcher.
func NewFakeDriver(t *testing.T, f *FakeLauncher) *driver.Driver {
	t.Helper()
	d, err := driver.New(context.Background(), "minizinc", driver.WithLauncher(f))
	require.NoError(t, err)
	return d
}

// HasArgs reports whether args contains seq as a contiguous run.
func HasArgs(args []string, seq ...string) bool {
	return strings.Contains("\x00"+strings.Join(args, "\x00")+"\x00", "\x00"+strings.Join(seq, "\x00")+"\x00")
}

// FakeProcess is a scripted driver.Process.
type FakeProcess struct {
	script Script

	stdoutR, stderrR *io.PipeReader
	stdoutW, stderrW *io.PipeWriter

	mu         sync.Mutex
	interrupts int
	kills      int
	interrupt  chan struct{}
	killed     chan struct{}
	intOnce    sync.Once
	killOnce   sync.Once
	done       chan struct{}
	code       int
}

func newFakeProcess(s Script) *FakeProcess {
	p := &FakeProcess{
		script:    s,
		interrupt: make(chan struct{}),
		killed:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *FakeProcess) run() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = io.WriteString(p.stderrW, p.script.Stderr)
	}()
	_, _ = io.WriteString(p.stdoutW, p.script.Stdout)

	code := p.script.ExitCode
	if p.script.Hold {
		interrupt := p.interrupt
		if p.script.IgnoreInterrupt {
			interrupt = nil
		}
		select {
		case <-interrupt:
			_, _ = io.WriteString(p.stdoutW, p.script.Tail)
			code = p.script.InterruptExitCode
		case <-p.killed:
		}
	}
	wg.Wait()
	select {
	case <-p.killed:
		code = -1
	default:
	}
	_ = p.stdoutW.Close()
	_ = p.stderrW.Close()
	p.code = code
	close(p.done)
}

func (p *FakeProcess) Pid() int          { return 4242 }
func (p *FakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *FakeProcess) Stderr() io.Reader { return p.stderrR }

func (p *FakeProcess) Interrupt() error {
	p.mu.Lock()
	p.interrupts++
	p.mu.Unlock()
	p.intOnce.Do(func() { close(p.interrupt) })
	return nil
}

func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.killOnce.Do(func() {
		close(p.killed)
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
	})
	return nil
}

func (p *FakeProcess) Wait() (int, error) {
	<-p.done
	return p.code, nil
}

// Interrupts returns how often Interrupt was called.
func (p *FakeProcess) Interrupts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interrupts
}

// Kills returns how often Kill was called.
func (p *FakeProcess) Kills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

// Exited reports whether the process has finished.
func (p *FakeProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
	}
	return false
}
