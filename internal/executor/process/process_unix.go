//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// killGroupOnCancel starts the interpreter as the leader of a new process
// group and makes context cancellation kill the whole group.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
