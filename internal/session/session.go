package session

import (
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/devhatch/devhatch/internal/prober"
	"github.com/devhatch/devhatch/internal/urldetect"
)

// Mode says how the dev server was launched.
type Mode string

const (
	// ModeTracked is a direct child with piped output and a held handle.
	ModeTracked Mode = "tracked"
	// ModeDetached runs in an external terminal window; no handle is held
	// and the window's lifetime is the user's to manage.
	ModeDetached Mode = "detached"
)

// State is the launch lifecycle of one session.
type State string

const (
	StateRequested State = "requested"
	StateSpawning  State = "spawning"
	StateTracked   State = "tracked"
	StateDetached  State = "detached"
	StateExited    State = "exited"
)

var (
	ErrNoPID          = errors.New("spawned process has no pid")
	ErrEmptyCommand   = errors.New("empty command")
	ErrAlreadyStarted = errors.New("session already started")
)

// Session is one dev-server run for a project key. The key doubles as the
// working directory the command is spawned in.
type Session struct {
	mu        sync.Mutex
	key       string
	command   string
	mode      Mode
	state     State
	cmd       *exec.Cmd
	pid       int
	startUnix int64
	startedAt time.Time
	stoppedAt time.Time
	exitErr   error
	det       *urldetect.Detector
	waitDone  chan struct{}
	outW      io.WriteCloser
	errW      io.WriteCloser
	onExit    func()
}

// New builds a session in state Requested. onURL fires at most once, from
// the stream-pumping goroutine, when a readiness URL is first seen.
func New(key, command string, mode Mode, onURL func(url string)) *Session {
	s := &Session{key: key, command: command, mode: mode, state: StateRequested}
	s.det = urldetect.New(onURL)
	return s
}

func (s *Session) Key() string     { return s.key }
func (s *Session) Command() string { return s.command }
func (s *Session) Mode() Mode      { return s.mode }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) ExitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitErr
}

// URL returns the latched readiness URL, if one was seen.
func (s *Session) URL() (string, bool) { return s.det.URL() }

// Detector exposes the session's URL detector so probe output can share
// the same latch.
func (s *Session) Detector() *urldetect.Detector { return s.det }

// SetOnExit installs a callback run once after the tracked child is reaped.
func (s *Session) SetOnExit(fn func()) {
	s.mu.Lock()
	s.onExit = fn
	s.mu.Unlock()
}

// MarkDetached moves a terminal-launched session to its terminal state.
// Such sessions hold no handle; they exist so a detected URL has a home.
func (s *Session) MarkDetached() {
	s.mu.Lock()
	s.state = StateDetached
	s.startedAt = time.Now()
	s.mu.Unlock()
}

// Launch spawns the command as a tracked child in the session's directory.
// stdin reads from the null device; stdout and stderr are piped through
// the URL detector and, when writers are given, copied to them. The
// writers are closed after the child is reaped.
func (s *Session) Launch(stdout, stderr io.WriteCloser) error {
	argv := SplitCommand(s.command)
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	s.mu.Lock()
	if s.state != StateRequested {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateSpawning
	s.mu.Unlock()

	// #nosec G204 -- command comes from the user's own project config
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.key
	configureSysProcAttr(cmd)

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		s.fail(err)
		return err
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		s.fail(err)
		return err
	}

	if err := cmd.Start(); err != nil {
		s.fail(err)
		return err
	}
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		_ = cmd.Wait()
		s.fail(ErrNoPID)
		return ErrNoPID
	}

	s.mu.Lock()
	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.startedAt = time.Now()
	s.startUnix = prober.StartUnix(cmd.Process.Pid)
	s.state = StateTracked
	s.waitDone = make(chan struct{})
	s.outW = stdout
	s.errW = stderr
	s.mu.Unlock()

	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		s.pump(outPipe, stdout)
	}()
	go func() {
		defer pumps.Done()
		s.pump(errPipe, stderr)
	}()
	go s.monitor(cmd, &pumps)
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateExited
	s.exitErr = err
	s.stoppedAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) pump(r io.Reader, w io.Writer) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.det.Feed(buf[:n])
			if w != nil {
				_, _ = w.Write(buf[:n])
			}
		}
		if err != nil {
			return
		}
	}
}

// monitor is the single waiter on the child. It reaps after both pipe
// pumps drain so cmd.Wait never races the readers.
func (s *Session) monitor(cmd *exec.Cmd, pumps *sync.WaitGroup) {
	pumps.Wait()
	err := cmd.Wait()

	s.mu.Lock()
	s.state = StateExited
	s.exitErr = err
	s.stoppedAt = time.Now()
	wd := s.waitDone
	s.waitDone = nil
	outW, errW := s.outW, s.errW
	s.outW, s.errW = nil, nil
	onExit := s.onExit
	s.mu.Unlock()

	if outW != nil {
		_ = outW.Close()
	}
	if errW != nil {
		_ = errW.Close()
	}
	if wd != nil {
		close(wd)
	}
	if onExit != nil {
		onExit()
	}
}

// Alive reports whether the tracked child is still the process we started.
// A recycled PID belonging to some other process does not count; the start
// time recorded at spawn is the tiebreaker.
func (s *Session) Alive() bool {
	s.mu.Lock()
	state := s.state
	pid := s.pid
	started := s.startUnix
	s.mu.Unlock()

	if state != StateTracked || pid <= 0 {
		return false
	}
	if !processExists(pid) {
		return false
	}
	if started > 0 {
		if cur := prober.StartUnix(pid); cur > 0 && cur != started {
			return false
		}
	}
	return true
}

// Stop terminates the tracked child: graceful signal to the process group,
// then a forced kill after grace. It reports whether there was a live
// handle to act on. Detached sessions always report false; the prober
// sweep is their termination path.
func (s *Session) Stop(grace time.Duration) bool {
	s.mu.Lock()
	state := s.state
	pid := s.pid
	wd := s.waitDone
	s.mu.Unlock()

	if state != StateTracked || pid <= 0 {
		return false
	}
	terminate(pid)
	if wd == nil {
		return true
	}
	select {
	case <-wd:
	case <-time.After(grace):
		kill(pid)
		select {
		case <-wd:
		case <-time.After(500 * time.Millisecond):
		}
	}
	return true
}
