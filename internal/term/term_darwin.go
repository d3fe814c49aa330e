//go:build darwin

package term

import (
	"fmt"
	"os/exec"
	"strings"
)

// open drives Terminal.app through AppleScript: a new window running the
// dev command, brought to the front.
func open(dir, command string) error {
	script := fmt.Sprintf("cd %s && %s", quoteForShell(dir), command)
	osa := fmt.Sprintf(`tell application "Terminal"
	activate
	do script %q
end tell`, script)
	// #nosec G204
	cmd := exec.Command("osascript", "-e", osa)
	if err := cmd.Start(); err != nil {
		return err
	}
	release(cmd)
	return nil
}

func quoteForShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
