package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Command is one fully specified driver invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Process is a started driver process. Stdout and Stderr must be read to EOF
// before Wait is called.
type Process interface {
	Pid() int
	Stdout() io.Reader
	Stderr() io.Reader
	// Interrupt asks the process to stop and flush what it has.
	Interrupt() error
	// Kill terminates the process immediately.
	Kill() error
	// Wait blocks until the process exits and returns its exit code. A
	// process ended by a signal reports -1.
	Wait() (int, error)
}

// Launcher starts driver processes.
type Launcher interface {
	Start(ctx context.Context, cmd Command) (Process, error)
}

// ExecLauncher starts real operating system processes. The returned process
// is not bound to ctx; termination is the caller's job.
//
// On unix the driver runs in its own process group so that signals reach the
// solver processes it spawns as well.
type ExecLauncher struct{}

// pipeLinger is how long the pipes stay open after a forced kill. Output
// still buffered in them is read during that time; afterwards the read ends
// are closed so readers see EOF even if a stray descendant holds the write
// ends.
var pipeLinger = 500 * time.Millisecond

func (ExecLauncher) Start(_ context.Context, c Command) (Process, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	setProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", c.Path, err)
	}
	return &execProcess{cmd: cmd, stdout: pipe{stdout}, stderr: pipe{stderr}}, nil
}

// pipe reports a read end closed after a kill as a plain EOF.
type pipe struct {
	r io.ReadCloser
}

func (p pipe) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if errors.Is(err, os.ErrClosed) {
		return n, io.EOF
	}
	return n, err
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout pipe
	stderr pipe

	mu     sync.Mutex
	linger *time.Timer
}

func (p *execProcess) Pid() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Interrupt() error {
	return interruptGroup(p.cmd.Process)
}

func (p *execProcess) Kill() error {
	err := killGroup(p.cmd.Process)
	p.mu.Lock()
	if p.linger == nil {
		p.linger = time.AfterFunc(pipeLinger, p.closePipes)
	}
	p.mu.Unlock()
	return err
}

func (p *execProcess) closePipes() {
	_ = p.stdout.r.Close()
	_ = p.stderr.r.Close()
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	p.mu.Lock()
	if p.linger != nil {
		p.linger.Stop()
	}
	p.mu.Unlock()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return p.cmd.ProcessState.ExitCode(), nil
}
