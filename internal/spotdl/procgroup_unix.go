//go:build unix

package spotdl

import (
	"errors"
	"os/exec"
	"syscall"
)

// killGroup runs the tool in its own process group and kills the whole group
// on cancellation, so encoders the tool spawns die with it.
func killGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
}
