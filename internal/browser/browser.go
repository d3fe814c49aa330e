// Package browser asks the OS to open a URL in the user's default browser.
// Open failures are reported to the caller for logging and are never fatal.
package browser

import "os/exec"

// Opener is the shape managers accept so tests can substitute a recorder.
type Opener func(url string) error

// Open launches the platform's default browser on url and detaches.
func Open(url string) error {
	return open(url)
}

func release(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
}
