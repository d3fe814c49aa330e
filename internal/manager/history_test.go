package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devhatch/devhatch/internal/store/sqlite"
)

func TestHistoryRecordsSessionLifecycle(t *testing.T) {
	requireUnix(t)
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho http://localhost:3000\nsleep 30\n"), 0o700); err != nil {
		t.Fatalf("script: %v", err)
	}

	m := New(Config{
		Logger:      quietLogger(),
		Prober:      &fakeProber{},
		Store:       st,
		StopGrace:   2 * time.Second,
		OpenBrowser: func(string) error { return nil },
	})
	ctx := context.Background()

	if res := m.StartDevServer(ctx, dir, script, Options{OpenInBrowser: true}); !res.Success {
		t.Fatalf("start: %+v", res)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := m.DetectedURL(dir); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("url never detected")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if res := m.StopDevServer(ctx, dir); !res.Success {
		t.Fatalf("stop: %+v", res)
	}

	recs, err := m.History(ctx, dir, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	r := recs[0]
	if r.Mode != "tracked" || r.PID <= 0 {
		t.Fatalf("record = %+v", r)
	}
	if !r.URL.Valid || r.URL.String != "http://localhost:3000" {
		t.Fatalf("url = %+v", r.URL)
	}
	if !r.StoppedAt.Valid {
		t.Fatal("stop never recorded")
	}
}

func TestHistoryDisabledWithoutStore(t *testing.T) {
	m := newTestManager(&fakeProber{})
	recs, err := m.History(context.Background(), "", 10)
	if err != nil || recs != nil {
		t.Fatalf("expected nil history, got %v %v", recs, err)
	}
}
