//go:build !unix

package driver

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
)

func setProcessGroup(*exec.Cmd) {}

func interruptGroup(p *os.Process) error {
	// Windows has no interrupt signal for child processes.
	if runtime.GOOS == "windows" {
		return killGroup(p)
	}
	if err := p.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func killGroup(p *os.Process) error {
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
