//go:build unix

package driver

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup signals every process in the group led by p. A group that is
// already gone is not an error.
func signalGroup(p *os.Process, sig unix.Signal) error {
	err := unix.Kill(-p.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func interruptGroup(p *os.Process) error { return signalGroup(p, unix.SIGINT) }

func killGroup(p *os.Process) error { return signalGroup(p, unix.SIGKILL) }
