package session

import (
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/devhatch/devhatch/internal/urldetect"
)

// DefaultProbeTimeout bounds how long a detector-only process may live
// without producing a readiness URL.
const DefaultProbeTimeout = 30 * time.Second

// Probe is a silent copy of a dev-server command, spawned with piped
// stdio purely to scrape the readiness URL when the visible process runs
// inside an external terminal window whose output we cannot read. It
// kills itself as soon as a URL is latched, or at the timeout; timing out
// without a match is not an error, just "URL unknown".
type Probe struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

// StartProbe launches the probe in dir. det receives every output chunk;
// the probe stops itself when det latches.
func StartProbe(dir, command string, timeout time.Duration, det *urldetect.Detector) (*Probe, error) {
	argv := SplitCommand(command)
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	// #nosec G204 -- command comes from the user's own project config
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	configureSysProcAttr(cmd)

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Probe{cmd: cmd, done: make(chan struct{})}

	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		p.watch(outPipe, det)
	}()
	go func() {
		defer pumps.Done()
		p.watch(errPipe, det)
	}()
	go func() {
		pumps.Wait()
		_ = cmd.Wait()
		p.Stop()
	}()
	go func() {
		select {
		case <-time.After(timeout):
			p.Stop()
		case <-p.done:
		}
	}()
	return p, nil
}

func (p *Probe) watch(r io.Reader, det *urldetect.Detector) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if det.Feed(buf[:n]) {
				p.Stop()
			}
		}
		if err != nil {
			return
		}
	}
}

// Stop force-kills the probe. Safe to call any number of times.
func (p *Probe) Stop() {
	p.once.Do(func() {
		close(p.done)
		if p.cmd != nil && p.cmd.Process != nil {
			kill(p.cmd.Process.Pid)
		}
	})
}

// Done is closed once the probe has been stopped or reaped.
func (p *Probe) Done() <-chan struct{} { return p.done }
