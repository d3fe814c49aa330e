//go:build windows

package prober

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type cimProcess struct {
	ProcessId   int32  `json:"ProcessId"`
	Name        string `json:"Name"`
	CommandLine string `json:"CommandLine"`
}

// scanFallback queries Win32_Process through PowerShell, returning
// structured {ProcessId, Name, CommandLine} records as JSON.
func scanFallback(ctx context.Context, runtimes []string, projectPath string) ([]Info, error) {
	script := "Get-CimInstance Win32_Process | Select-Object ProcessId,Name,CommandLine | ConvertTo-Json -Compress"
	out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: powershell: %v", ErrQueryFailed, err)
	}
	var procs []cimProcess
	trimmed := strings.TrimSpace(string(out))
	if strings.HasPrefix(trimmed, "{") {
		// Single-element result is emitted as an object, not an array.
		var one cimProcess
		if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		procs = []cimProcess{one}
	} else if err := json.Unmarshal([]byte(trimmed), &procs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	var infos []Info
	for _, p := range procs {
		if !matchRuntime(p.Name, runtimes) || p.CommandLine == "" {
			continue
		}
		if matchPath(p.CommandLine, projectPath) {
			infos = append(infos, Info{PID: p.ProcessId, Cmdline: p.CommandLine})
		}
	}
	return infos, nil
}

// killFallback uses taskkill /T to take down the process tree.
func killFallback(ctx context.Context, pid int32) error {
	return exec.CommandContext(ctx, "taskkill", "/PID", strconv.Itoa(int(pid)), "/T", "/F").Run()
}
