package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/telemetry"
)

// StopReason says why a session was asked to stop early.
type StopReason int

const (
	NotStopped StopReason = iota
	// StopRequested is an explicit Stop call.
	StopRequested
	// StopCancelled is a cancelled context.
	StopCancelled
	// StopDeadline is the hard timeout.
	StopDeadline
	// StopFatal follows a fatal error reported by the driver.
	StopFatal
)

func (r StopReason) String() string {
	switch r {
	case StopRequested:
		return "requested"
	case StopCancelled:
		return "cancelled"
	case StopDeadline:
		return "deadline"
	case StopFatal:
		return "fatal error"
	default:
		return "none"
	}
}

// controller ends a driver process early: interrupt first, kill once the
// grace period has passed.
type controller struct {
	proc  driver.Process
	grace time.Duration
	log   *slog.Logger

	mu       sync.Mutex
	reason   StopReason
	killed   bool
	stopped  chan struct{}
	stopOnce sync.Once
	exited   chan struct{}
	exitOnce sync.Once
}

func newController(proc driver.Process, grace time.Duration, log *slog.Logger) *controller {
	return &controller{
		proc:    proc,
		grace:   grace,
		log:     log,
		stopped: make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

// watch stops the process when ctx ends or the deadline passes, and kills
// it if it outlives the grace period. It returns once the process exited
// or was killed.
func (c *controller) watch(ctx context.Context, deadline time.Duration) {
	var timeout <-chan time.Time
	if deadline > 0 {
		t := time.NewTimer(deadline)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-c.exited:
		return
	case <-c.stopped:
	case <-ctx.Done():
		c.stop(StopCancelled)
	case <-timeout:
		c.stop(StopDeadline)
	}

	grace := time.NewTimer(c.grace)
	defer grace.Stop()
	select {
	case <-c.exited:
	case <-grace.C:
		c.mu.Lock()
		c.killed = true
		c.mu.Unlock()
		c.log.Warn("Driver did not exit after interrupt, killing it.", "pid", c.proc.Pid(), "grace", c.grace)
		telemetry.ForcedKill()
		if err := c.proc.Kill(); err != nil {
			c.log.Error("Failed to kill driver.", "pid", c.proc.Pid(), "error", err)
		}
	}
}

// stop interrupts the process. Only the first call has an effect.
func (c *controller) stop(reason StopReason) {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.stopped)
		select {
		case <-c.exited:
			return
		default:
		}
		c.log.Debug("Stopping driver.", "pid", c.proc.Pid(), "reason", reason)
		if err := c.proc.Interrupt(); err != nil {
			c.log.Debug("Interrupt failed.", "pid", c.proc.Pid(), "error", err)
		}
	})
}

// markExited tells the watcher the process is gone.
func (c *controller) markExited() {
	c.exitOnce.Do(func() { close(c.exited) })
}

func (c *controller) outcome() (StopReason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason, c.killed
}
