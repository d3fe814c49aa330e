//go:build windows

package browser

import "os/exec"

func open(url string) error {
	cmd := exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	if err := cmd.Start(); err != nil {
		return err
	}
	release(cmd)
	return nil
}
