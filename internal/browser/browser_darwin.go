//go:build darwin

package browser

import "os/exec"

func open(url string) error {
	cmd := exec.Command("open", url)
	if err := cmd.Start(); err != nil {
		return err
	}
	release(cmd)
	return nil
}
