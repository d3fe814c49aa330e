//go:build !windows

package prober

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// scanFallback shells out to ps when gopsutil enumeration is unavailable.
// Output format: "<pid> <full command line>" per line.
func scanFallback(ctx context.Context, runtimes []string, projectPath string) ([]Info, error) {
	out, err := exec.CommandContext(ctx, "ps", "-eo", "pid=,args=").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ps: %v", ErrQueryFailed, err)
	}
	infos, perr := parsePS(string(out), runtimes, projectPath)
	if perr != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, perr)
	}
	return infos, nil
}

func parsePS(out string, runtimes []string, projectPath string) ([]Info, error) {
	var infos []Info
	parsedAny := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		parsedAny = true
		cmdline := strings.TrimSpace(fields[1])
		argv := strings.Fields(cmdline)
		if len(argv) == 0 {
			continue
		}
		argv0 := argv[0]
		base := argv0
		if i := strings.LastIndexByte(argv0, '/'); i >= 0 {
			base = argv0[i+1:]
		}
		if !matchRuntime(base, runtimes) {
			continue
		}
		if matchPath(cmdline, projectPath) {
			infos = append(infos, Info{PID: int32(pid), Cmdline: cmdline})
		}
	}
	if !parsedAny && strings.TrimSpace(out) != "" {
		return nil, fmt.Errorf("unparseable ps output")
	}
	return infos, nil
}

// killFallback sends SIGKILL to the process group first (catches children
// for group leaders), then to the pid itself.
func killFallback(_ context.Context, pid int32) error {
	_ = syscall.Kill(-int(pid), syscall.SIGKILL)
	return syscall.Kill(int(pid), syscall.SIGKILL)
}
