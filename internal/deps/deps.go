// Package deps reports the availability of the external binaries the
// monitor shells out to. The only one today is ffmpeg, which decodes
// every stream's video and audio.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status reports whether a required binary can be launched.
type Status struct {
	Command   string
	Available bool
	Detail    string
}

// CheckFFmpeg resolves the configured ffmpeg binary. An empty path
// falls back to plain "ffmpeg" from PATH.
func CheckFFmpeg(ffmpegBinary string) Status {
	cmd := strings.TrimSpace(ffmpegBinary)
	if cmd == "" {
		cmd = "ffmpeg"
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return Status{
			Command: cmd,
			Detail:  fmt.Sprintf("binary %q not found", cmd),
		}
	}
	return Status{Command: cmd, Available: true}
}
