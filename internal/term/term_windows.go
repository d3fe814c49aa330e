//go:build windows

package term

import (
	"fmt"
	"os/exec"
)

// open starts a new cmd.exe window that stays open (/K) after running the
// dev command.
func open(dir, command string) error {
	script := fmt.Sprintf(`cd /d "%s" && %s`, dir, command)
	// #nosec G204
	cmd := exec.Command("cmd", "/C", "start", "cmd", "/K", script)
	if err := cmd.Start(); err != nil {
		return err
	}
	release(cmd)
	return nil
}
