package manager

import (
	"errors"

	"github.com/devhatch/devhatch/internal/prober"
	"github.com/devhatch/devhatch/internal/session"
	"github.com/devhatch/devhatch/internal/term"
)

// The error taxonomy surfaced through result structs. All of these are
// recovered locally; the public operations never panic and never return
// raw errors to callers.
var (
	ErrAlreadyRunning     = errors.New("dev server already running for this project")
	ErrNoPidAssigned      = session.ErrNoPID
	ErrNoTerminalEmulator = term.ErrNoEmulator
	ErrNoMatchingProcess  = errors.New("no matching process found to stop")
	ErrProcessQueryFailed = prober.ErrQueryFailed
	ErrLaunchFailed       = errors.New("failed to launch dev server")
)

// reason maps an error to a stable label for metrics.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		return "already_running"
	case errors.Is(err, ErrNoPidAssigned):
		return "no_pid"
	case errors.Is(err, ErrNoTerminalEmulator):
		return "no_terminal_emulator"
	case errors.Is(err, ErrNoMatchingProcess):
		return "no_matching_process"
	case errors.Is(err, ErrProcessQueryFailed):
		return "process_query_failed"
	default:
		return "launch_failed"
	}
}
