// Package manager owns the dev-server lifecycle: one registry entry per
// project, three launch strategies, URL detection, and best-effort
// termination that sweeps the OS process table for strays.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/devhatch/devhatch/internal/browser"
	"github.com/devhatch/devhatch/internal/logger"
	"github.com/devhatch/devhatch/internal/metrics"
	"github.com/devhatch/devhatch/internal/prober"
	"github.com/devhatch/devhatch/internal/session"
	"github.com/devhatch/devhatch/internal/store"
	"github.com/devhatch/devhatch/internal/term"
)

const DefaultStopGrace = 5 * time.Second

// Options tunes one start request.
type Options struct {
	// OpenInBrowser auto-navigates to the readiness URL once detected.
	OpenInBrowser bool
	// OpenInTerminal spawns the server in a new OS terminal window
	// instead of a tracked background child.
	OpenInTerminal bool
}

// DefaultOptions is background-tracked with browser auto-open.
func DefaultOptions() Options { return Options{OpenInBrowser: true} }

// StartResult is what a start request hands back to the caller. URL is
// filled only when detection already latched by the time of a later query;
// start itself returns before detection completes.
type StartResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	URL     string `json:"url,omitempty"`
}

type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Status is a point-in-time view of one registered session.
type Status struct {
	Key       string    `json:"key"`
	Command   string    `json:"command"`
	Mode      string    `json:"mode"`
	State     string    `json:"state"`
	PID       int       `json:"pid,omitempty"`
	URL       string    `json:"url,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Running   bool      `json:"running"`
}

// Config wires a Manager. Zero-value fields get working defaults; Store
// may stay nil to disable history.
type Config struct {
	Runtimes      []string
	DetectTimeout time.Duration
	StopGrace     time.Duration
	Capture       logger.Config
	Logger        *slog.Logger
	Prober        prober.Prober
	Store         store.Store
	OpenBrowser   browser.Opener
	OpenTerminal  func(dir, command string) error
}

type Manager struct {
	reg           *session.Registry
	prober        prober.Prober
	store         store.Store
	log           *slog.Logger
	capture       logger.Config
	runtimes      []string
	detectTimeout time.Duration
	stopGrace     time.Duration
	openBrowser   browser.Opener
	openTerminal  func(dir, command string) error

	mu         sync.Mutex
	histID     map[string]int64
	pendingURL map[string]string
	probes     map[string]*session.Probe
}

func New(cfg Config) *Manager {
	m := &Manager{
		reg:           session.NewRegistry(),
		prober:        cfg.Prober,
		store:         cfg.Store,
		log:           cfg.Logger,
		capture:       cfg.Capture,
		runtimes:      cfg.Runtimes,
		detectTimeout: cfg.DetectTimeout,
		stopGrace:     cfg.StopGrace,
		openBrowser:   cfg.OpenBrowser,
		openTerminal:  cfg.OpenTerminal,
		histID:        make(map[string]int64),
		pendingURL:    make(map[string]string),
		probes:        make(map[string]*session.Probe),
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.prober == nil {
		m.prober = prober.New(m.log)
	}
	if len(m.runtimes) == 0 {
		m.runtimes = []string{"node"}
	}
	if m.detectTimeout <= 0 {
		m.detectTimeout = session.DefaultProbeTimeout
	}
	if m.stopGrace <= 0 {
		m.stopGrace = DefaultStopGrace
	}
	if m.openBrowser == nil {
		m.openBrowser = browser.Open
	}
	if m.openTerminal == nil {
		m.openTerminal = term.Open
	}
	return m
}

func fail(err error) StartResult { return StartResult{Error: err.Error()} }

// StartDevServer launches command for key (the project path, which is also
// the working directory). It returns as soon as the process is spawned;
// URL detection continues in the background.
func (m *Manager) StartDevServer(ctx context.Context, key, command string, opts Options) StartResult {
	if m.reg.Has(key) {
		metrics.IncStartError(reason(ErrAlreadyRunning))
		return fail(ErrAlreadyRunning)
	}
	if opts.OpenInTerminal {
		return m.startDetached(ctx, key, command, opts)
	}
	return m.startTracked(ctx, key, command, opts)
}

func (m *Manager) startTracked(ctx context.Context, key, command string, opts Options) StartResult {
	s := session.New(key, command, session.ModeTracked, m.urlSink(key, opts))
	if err := m.reg.Register(s); err != nil {
		metrics.IncStartError(reason(ErrAlreadyRunning))
		return fail(ErrAlreadyRunning)
	}
	s.SetOnExit(func() {
		m.reg.RemoveIf(key, s)
		metrics.SetRunning(m.reg.Len())
		m.finishHistory(key, s.ExitErr())
		m.log.Info("dev server exited", "key", key, "err", s.ExitErr())
	})

	outW, errW := m.capture.Writers(key)
	if err := s.Launch(outW, errW); err != nil {
		m.reg.RemoveIf(key, s)
		if errors.Is(err, session.ErrNoPID) {
			metrics.IncStartError(reason(ErrNoPidAssigned))
			return fail(ErrNoPidAssigned)
		}
		m.log.Error("launch failed", "key", key, "command", command, "err", err)
		metrics.IncStartError(reason(ErrLaunchFailed))
		return fail(ErrLaunchFailed)
	}

	m.log.Info("dev server started", "key", key, "pid", s.PID(), "mode", s.Mode())
	metrics.IncStart(key, string(session.ModeTracked))
	metrics.SetRunning(m.reg.Len())
	m.recordStart(ctx, s)
	return StartResult{Success: true}
}

func (m *Manager) startDetached(ctx context.Context, key, command string, opts Options) StartResult {
	if err := m.openTerminal(key, command); err != nil {
		if errors.Is(err, term.ErrNoEmulator) {
			metrics.IncStartError(reason(ErrNoTerminalEmulator))
			return fail(ErrNoTerminalEmulator)
		}
		m.log.Error("terminal launch failed", "key", key, "err", err)
		metrics.IncStartError(reason(ErrLaunchFailed))
		return fail(ErrLaunchFailed)
	}

	s := session.New(key, command, session.ModeDetached, m.urlSink(key, opts))
	s.MarkDetached()
	if err := m.reg.Register(s); err != nil {
		metrics.IncStartError(reason(ErrAlreadyRunning))
		return fail(ErrAlreadyRunning)
	}

	// The terminal window's output is unreadable from here, so scrape the
	// URL from a second, silent copy of the command.
	if opts.OpenInBrowser {
		p, err := session.StartProbe(key, command, m.detectTimeout, s.Detector())
		if err != nil {
			m.log.Warn("detector probe failed to start", "key", key, "err", err)
		} else {
			m.mu.Lock()
			m.probes[key] = p
			m.mu.Unlock()
		}
	}

	m.log.Info("dev server opened in terminal", "key", key)
	metrics.IncStart(key, string(session.ModeDetached))
	metrics.SetRunning(m.reg.Len())
	m.recordStart(ctx, s)
	return StartResult{Success: true}
}

// urlSink builds the one-shot callback the detector latch fires into.
func (m *Manager) urlSink(key string, opts Options) func(string) {
	return func(u string) {
		m.log.Info("dev server url detected", "key", key, "url", u)
		metrics.IncURLDetected(key)
		m.saveURL(key, u)
		if opts.OpenInBrowser {
			if err := m.openBrowser(u); err != nil {
				m.log.Warn("browser open failed", "key", key, "url", u, "err", err)
			}
		}
	}
}

// StopDevServer terminates the dev server for key: graceful signal to the
// tracked handle when one exists, then an unconditional process-table
// sweep for strays and terminal-launched servers. It succeeds when either
// path found something to kill.
func (m *Manager) StopDevServer(ctx context.Context, key string) Result {
	hadLive := false
	if s, ok := m.reg.Get(key); ok {
		hadLive = s.Stop(m.stopGrace)
		m.reg.Remove(key)
		metrics.SetRunning(m.reg.Len())
	}

	m.mu.Lock()
	p := m.probes[key]
	delete(m.probes, key)
	m.mu.Unlock()
	if p != nil {
		p.Stop()
	}

	queryFailed := false
	killed := 0
	infos, err := m.prober.FindByPath(ctx, m.runtimes, key)
	if err != nil {
		m.log.Warn("process table query failed", "key", key, "err", err)
		queryFailed = true
	}
	for _, info := range infos {
		if err := m.prober.Kill(ctx, info.PID); err != nil {
			m.log.Warn("sweep kill failed", "key", key, "pid", info.PID, "err", err)
			continue
		}
		killed++
	}
	metrics.AddSweepKills(key, killed)

	if killed > 0 || hadLive {
		m.log.Info("dev server stopped", "key", key, "swept", killed, "had_handle", hadLive)
		metrics.IncStop(key)
		m.finishHistory(key, nil)
		return Result{Success: true}
	}
	if queryFailed {
		return Result{Error: ErrProcessQueryFailed.Error()}
	}
	return Result{Error: ErrNoMatchingProcess.Error()}
}

// IsProcessRunning reports liveness using the same two-step detection as
// stop (tracked handle, then process-table scan) without mutating anything.
func (m *Manager) IsProcessRunning(ctx context.Context, key string) bool {
	if s, ok := m.reg.Get(key); ok && s.Alive() {
		return true
	}
	infos, err := m.prober.FindByPath(ctx, m.runtimes, key)
	return err == nil && len(infos) > 0
}

// DetectedURL returns the readiness URL latched for key, if any.
func (m *Manager) DetectedURL(key string) (string, bool) {
	return m.reg.URL(key)
}

// Statuses lists every registered session. Running for detached sessions
// comes from the process-table scan since no handle exists.
func (m *Manager) Statuses(ctx context.Context) []Status {
	sessions := m.reg.All()
	out := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		st := Status{
			Key:       s.Key(),
			Command:   s.Command(),
			Mode:      string(s.Mode()),
			State:     string(s.State()),
			PID:       s.PID(),
			StartedAt: s.StartedAt(),
		}
		if u, ok := s.URL(); ok {
			st.URL = u
		}
		if s.Alive() {
			st.Running = true
		} else if s.Mode() == session.ModeDetached {
			infos, err := m.prober.FindByPath(ctx, m.runtimes, s.Key())
			st.Running = err == nil && len(infos) > 0
		}
		out = append(out, st)
	}
	return out
}

// History lists recent runs for key (empty key means all projects).
func (m *Manager) History(ctx context.Context, key string, limit int) ([]store.Record, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.Recent(ctx, key, limit)
}

// Shutdown stops every probe and tracked session, empties the registry
// and closes the history store. Called once at host application exit.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	probes := m.probes
	m.probes = make(map[string]*session.Probe)
	m.mu.Unlock()
	for _, p := range probes {
		p.Stop()
	}

	for _, s := range m.reg.All() {
		m.finishHistory(s.Key(), nil)
	}
	m.reg.ClearAll(m.stopGrace)
	metrics.SetRunning(0)

	if m.store != nil {
		_ = m.store.Close()
	}
	m.log.Info("all dev servers shut down")
}

func (m *Manager) recordStart(ctx context.Context, s *session.Session) {
	if m.store == nil {
		return
	}
	id, err := m.store.RecordStart(ctx, store.Record{
		Key:       s.Key(),
		Name:      s.Key(),
		PID:       s.PID(),
		Mode:      string(s.Mode()),
		StartedAt: s.StartedAt(),
	})
	if err != nil {
		m.log.Warn("history insert failed", "key", s.Key(), "err", err)
		return
	}
	m.mu.Lock()
	m.histID[s.Key()] = id
	pending, hadPending := m.pendingURL[s.Key()]
	delete(m.pendingURL, s.Key())
	m.mu.Unlock()
	if hadPending {
		if err := m.store.SetURL(ctx, id, pending); err != nil {
			m.log.Warn("history url update failed", "key", s.Key(), "err", err)
		}
	}
}

func (m *Manager) saveURL(key, url string) {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	id, ok := m.histID[key]
	if !ok {
		// Detection can beat the history insert for fast-printing servers;
		// park the URL until the row id exists.
		m.pendingURL[key] = url
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := m.store.SetURL(context.Background(), id, url); err != nil {
		m.log.Warn("history url update failed", "key", key, "err", err)
	}
}

func (m *Manager) finishHistory(key string, exitErr error) {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	id, ok := m.histID[key]
	delete(m.histID, key)
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := m.store.RecordStop(context.Background(), id, time.Now(), exitErr); err != nil {
		m.log.Warn("history stop update failed", "key", key, "err", err)
	}
}
