// Package term opens a new OS terminal window running a dev-server command
// in a project directory. The spawned terminal is released immediately: its
// lifetime belongs to the user, not to this process.
package term

import (
	"errors"
	"os/exec"
)

// ErrNoEmulator is returned on Linux when none of the known terminal
// emulators could be spawned.
var ErrNoEmulator = errors.New("no terminal emulator found")

// Open launches a terminal window that runs `cd dir && command` and leaves
// it for the user. The underlying process is detached and never tracked.
func Open(dir, command string) error {
	return open(dir, command)
}

// release detaches a started terminal process so its exit is the user's
// concern, not ours.
func release(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
}
