//go:build !windows && !darwin

package term

import (
	"fmt"
	"os/exec"
	"strings"
)

// emulators in fixed preference order; the first one that spawns wins.
var emulators = []struct {
	name string
	args func(script string) []string
}{
	{"gnome-terminal", func(script string) []string { return []string{"--", "sh", "-c", script} }},
	{"konsole", func(script string) []string { return []string{"-e", "sh", "-c", script} }},
	{"xterm", func(script string) []string { return []string{"-e", "sh", "-c", script} }},
}

func open(dir, command string) error {
	script := fmt.Sprintf("cd %s && %s", quoteForShell(dir), command)
	return openWith(script, func(c *exec.Cmd) error { return c.Start() })
}

// openWith tries each emulator in order; injectable start hook for tests.
func openWith(script string, start func(*exec.Cmd) error) error {
	for _, em := range emulators {
		if _, err := exec.LookPath(em.name); err != nil {
			continue
		}
		// #nosec G204
		cmd := exec.Command(em.name, em.args(script)...)
		if err := start(cmd); err != nil {
			continue
		}
		release(cmd)
		return nil
	}
	return ErrNoEmulator
}

func quoteForShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
