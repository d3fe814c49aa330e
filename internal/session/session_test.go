package session

import (
	"runtime"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix-only test")
	}
}

func TestSplitCommand(t *testing.T) {
	got := SplitCommand("npm run dev")
	if len(got) != 3 || got[0] != "npm" || got[1] != "run" || got[2] != "dev" {
		t.Fatalf("unexpected tokens: %v", got)
	}
	// Quotes are not honored; this is a documented constraint.
	got = SplitCommand(`node "my server.js"`)
	if len(got) != 3 {
		t.Fatalf("expected naive split into 3 tokens, got %v", got)
	}
	if len(SplitCommand("   ")) != 0 {
		t.Fatal("blank command should produce no tokens")
	}
}

func TestLaunchEmptyCommand(t *testing.T) {
	s := New(t.TempDir(), "", ModeTracked, nil)
	if err := s.Launch(nil, nil); err != ErrEmptyCommand {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestLaunchBadProgram(t *testing.T) {
	s := New(t.TempDir(), "definitely-not-a-real-binary-xyz", ModeTracked, nil)
	if err := s.Launch(nil, nil); err == nil {
		t.Fatal("expected launch error")
	}
	if s.State() != StateExited {
		t.Fatalf("state = %v, want exited", s.State())
	}
}

func TestLaunchDetectsURL(t *testing.T) {
	requireUnix(t)
	urlCh := make(chan string, 1)
	s := New(t.TempDir(), "echo ready-on-http://localhost:3000/", ModeTracked, func(u string) {
		urlCh <- u
	})
	if err := s.Launch(nil, nil); err != nil {
		t.Fatalf("launch: %v", err)
	}
	select {
	case u := <-urlCh:
		if u != "http://localhost:3000" {
			t.Fatalf("url = %q", u)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no URL detected")
	}
	if u, ok := s.URL(); !ok || u != "http://localhost:3000" {
		t.Fatalf("URL() = %q %v", u, ok)
	}
}

func TestLaunchExitCallback(t *testing.T) {
	requireUnix(t)
	done := make(chan struct{})
	s := New(t.TempDir(), "true", ModeTracked, nil)
	s.SetOnExit(func() { close(done) })
	if err := s.Launch(nil, nil); err != nil {
		t.Fatalf("launch: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("exit callback never fired")
	}
	if s.State() != StateExited {
		t.Fatalf("state = %v, want exited", s.State())
	}
	if s.Alive() {
		t.Fatal("exited session reports alive")
	}
}

func TestStopTrackedChild(t *testing.T) {
	requireUnix(t)
	s := New(t.TempDir(), "sleep 30", ModeTracked, nil)
	if err := s.Launch(nil, nil); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if !s.Alive() {
		t.Fatal("expected live child")
	}
	if !s.Stop(2 * time.Second) {
		t.Fatal("Stop reported no live handle")
	}
	deadline := time.Now().Add(3 * time.Second)
	for s.Alive() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if s.Alive() {
		t.Fatal("child survived Stop")
	}
}

func TestLaunchTwice(t *testing.T) {
	requireUnix(t)
	s := New(t.TempDir(), "sleep 30", ModeTracked, nil)
	if err := s.Launch(nil, nil); err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer s.Stop(time.Second)
	if err := s.Launch(nil, nil); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestDetachedSessionHoldsNoHandle(t *testing.T) {
	s := New("/some/project", "npm run dev", ModeDetached, nil)
	s.MarkDetached()
	if s.State() != StateDetached {
		t.Fatalf("state = %v", s.State())
	}
	if s.Alive() {
		t.Fatal("detached session must not report alive via handle")
	}
	if s.Stop(time.Second) {
		t.Fatal("detached session has no handle to stop")
	}
}
