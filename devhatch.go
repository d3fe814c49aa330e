// Package devhatch manages per-project development servers: spawning,
// URL detection, and OS-level termination across three launch modes.
package devhatch

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/devhatch/devhatch/internal/config"
	"github.com/devhatch/devhatch/internal/manager"
	"github.com/devhatch/devhatch/internal/metrics"
	iapi "github.com/devhatch/devhatch/internal/server"
	"github.com/devhatch/devhatch/internal/store"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Options = manager.Options

type StartResult = manager.StartResult

type Result = manager.Result

type Status = manager.Status

type ManagerConfig = manager.Config

type Config = cfg.Config

type Project = cfg.Project

type HistoryRecord = store.Record

// Error sentinels surfaced in result Error strings.
var (
	ErrAlreadyRunning     = manager.ErrAlreadyRunning
	ErrNoPidAssigned      = manager.ErrNoPidAssigned
	ErrNoTerminalEmulator = manager.ErrNoTerminalEmulator
	ErrNoMatchingProcess  = manager.ErrNoMatchingProcess
	ErrProcessQueryFailed = manager.ErrProcessQueryFailed
	ErrLaunchFailed       = manager.ErrLaunchFailed
)

// Manager is a thin facade over internal/manager.Manager providing a
// stable public API for embedding in a desktop dashboard.
type Manager struct{ inner *manager.Manager }

func New() *Manager { return &Manager{inner: manager.New(manager.Config{})} }

func NewWithConfig(c ManagerConfig) *Manager { return &Manager{inner: manager.New(c)} }

// DefaultOptions is background-tracked with browser auto-open.
func DefaultOptions() Options { return manager.DefaultOptions() }

func (m *Manager) Start(ctx context.Context, key, command string, opts Options) StartResult {
	return m.inner.StartDevServer(ctx, key, command, opts)
}

func (m *Manager) Stop(ctx context.Context, key string) Result {
	return m.inner.StopDevServer(ctx, key)
}

func (m *Manager) IsRunning(ctx context.Context, key string) bool {
	return m.inner.IsProcessRunning(ctx, key)
}

func (m *Manager) URL(key string) (string, bool) { return m.inner.DetectedURL(key) }

func (m *Manager) Statuses(ctx context.Context) []Status { return m.inner.Statuses(ctx) }

func (m *Manager) History(ctx context.Context, key string, limit int) ([]HistoryRecord, error) {
	return m.inner.History(ctx, key, limit)
}

// Shutdown stops every managed dev server. Call once at application exit.
func (m *Manager) Shutdown(ctx context.Context) { m.inner.Shutdown(ctx) }

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewHTTPServer starts an HTTP server exposing the management API.
func NewHTTPServer(addr, basePath string, m *Manager) *http.Server {
	return iapi.NewServer(addr, basePath, m.inner)
}

// Metrics helpers.

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
