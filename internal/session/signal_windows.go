//go:build windows

package session

import (
	"os/exec"
	"strconv"
	"syscall"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess  = kernel32.NewProc("OpenProcess")
	procCloseHandle  = kernel32.NewProc("CloseHandle")
	procTerminateSys = kernel32.NewProc("TerminateProcess")
)

const processQueryLimitedInformation = 0x1000
const processTerminate = 0x0001

// terminate asks the dev-server tree to exit. Windows has no SIGTERM; the
// closest equivalent is taskkill without /F, which posts WM_CLOSE.
func terminate(pid int) {
	_ = exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T").Run()
}

// kill force-terminates the process tree rooted at pid.
func kill(pid int) {
	if exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F").Run() == nil {
		return
	}
	h, _, _ := procOpenProcess.Call(uintptr(processTerminate), 0, uintptr(uint32(pid)))
	if h == 0 {
		return
	}
	_, _, _ = procTerminateSys.Call(h, uintptr(1))
	_, _, _ = procCloseHandle.Call(h)
}

func processExists(pid int) bool {
	h, _, _ := procOpenProcess.Call(uintptr(processQueryLimitedInformation), 0, uintptr(uint32(pid)))
	if h == 0 {
		return false
	}
	_, _, _ = procCloseHandle.Call(h)
	return true
}
