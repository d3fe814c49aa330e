//go:build !windows

package session

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr puts the child in its own process group so a stop
// signal reaches the whole dev-server tree (npm spawns node spawns esbuild).
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
