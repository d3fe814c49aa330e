package devhatch

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/devhatch/devhatch/internal/manager"
)

func TestFacadeLifecycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix-only test")
	}
	m := NewWithConfig(manager.Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		StopGrace:   2 * time.Second,
		OpenBrowser: func(string) error { return nil },
	})
	ctx := context.Background()
	dir := t.TempDir()

	res := m.Start(ctx, dir, "sleep 30", Options{})
	if !res.Success {
		t.Fatalf("start: %+v", res)
	}
	if !m.IsRunning(ctx, dir) {
		t.Fatal("expected running")
	}
	if len(m.Statuses(ctx)) != 1 {
		t.Fatal("expected one status")
	}
	if _, ok := m.URL(dir); ok {
		t.Fatal("sleep has no URL")
	}
	m.Shutdown(ctx)
	if m.IsRunning(ctx, dir) {
		t.Fatal("still running after shutdown")
	}
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if !o.OpenInBrowser || o.OpenInTerminal {
		t.Fatalf("defaults = %+v", o)
	}
}
