// Package prober finds and kills dev-server processes through the OS
// process table. It is the fallback used when no tracked handle exists,
// e.g. for servers launched into an external terminal window.
package prober

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// ErrQueryFailed is returned when the process table itself could not be
// enumerated (as opposed to enumerating fine and finding no match).
var ErrQueryFailed = errors.New("process table query failed")

// Info describes one process found by a scan.
type Info struct {
	PID     int32
	Cmdline string
}

// Prober enumerates and kills dev-tooling processes by project path.
type Prober interface {
	// FindByPath returns processes whose executable name matches one of
	// runtimes (e.g. "node") and whose command line contains projectPath.
	FindByPath(ctx context.Context, runtimes []string, projectPath string) ([]Info, error)
	// Kill force-kills the process and its children. Best effort per child.
	Kill(ctx context.Context, pid int32) error
}

// OS is the default Prober backed by gopsutil, with an exec-based fallback
// (ps on Unix, PowerShell on Windows) when gopsutil enumeration errors.
type OS struct {
	Log *slog.Logger
}

func New(log *slog.Logger) *OS {
	if log == nil {
		log = slog.Default()
	}
	return &OS{Log: log}
}

// matchPath reports whether cmdline references projectPath, case-insensitive
// and path-separator normalized. Substring matching is deliberate and known
// to collide when one project path is a prefix of another.
func matchPath(cmdline, projectPath string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, `\`, "/"))
	}
	return strings.Contains(norm(cmdline), norm(projectPath))
}

func matchRuntime(name string, runtimes []string) bool {
	base := strings.ToLower(strings.TrimSuffix(name, ".exe"))
	for _, r := range runtimes {
		if base == strings.ToLower(r) {
			return true
		}
	}
	return false
}

func (o *OS) FindByPath(ctx context.Context, runtimes []string, projectPath string) ([]Info, error) {
	procs, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		o.Log.Debug("gopsutil enumeration failed, falling back to exec scan", "error", err)
		return scanFallback(ctx, runtimes, projectPath)
	}
	var out []Info
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !matchRuntime(name, runtimes) {
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			continue
		}
		if matchPath(cmdline, projectPath) {
			out = append(out, Info{PID: p.Pid, Cmdline: cmdline})
		}
	}
	return out, nil
}

// Kill force-kills pid and any children it spawned (npm forks the actual
// bundler, so killing only the parent leaves the port held).
func (o *OS) Kill(ctx context.Context, pid int32) error {
	p, err := gopsproc.NewProcessWithContext(ctx, pid)
	if err != nil {
		return killFallback(ctx, pid)
	}
	if children, err := p.ChildrenWithContext(ctx); err == nil {
		for _, c := range children {
			if kerr := c.KillWithContext(ctx); kerr != nil {
				o.Log.Debug("child kill failed", "pid", c.Pid, "error", kerr)
			}
		}
	}
	if err := p.KillWithContext(ctx); err != nil {
		return killFallback(ctx, pid)
	}
	return nil
}
