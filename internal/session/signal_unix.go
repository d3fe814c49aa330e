//go:build !windows

package session

import "syscall"

// terminate sends SIGTERM to the process group, falling back to the single
// pid when the group signal is refused.
func terminate(pid int) {
	if syscall.Kill(-pid, syscall.SIGTERM) != nil {
		_ = syscall.Kill(pid, syscall.SIGTERM)
	}
}

// kill force-kills the process group, falling back to the single pid.
func kill(pid int) {
	if syscall.Kill(-pid, syscall.SIGKILL) != nil {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}

func processExists(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
