package decode

import (
	"errors"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

var commandContext = exec.CommandContext

var errWaitTimeout = errors.New("timed out waiting for ffmpeg to exit")

// setupProcessGroup places the child in its own process group so that a
// kill reaches ffmpeg's own helpers as well.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
}

// stopProcess kills the child's process group and waits for it, bounded
// so a wedged ffmpeg cannot hang stream shutdown.
func stopProcess(cmd *exec.Cmd, timeout time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errWaitTimeout
	}
}
