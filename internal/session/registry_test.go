package session

import (
	"testing"
	"time"
)

func TestRegistryRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	a := New("/p/web", "npm run dev", ModeTracked, nil)
	if err := r.Register(a); err != nil {
		t.Fatalf("first register: %v", err)
	}
	b := New("/p/web", "npm run dev", ModeTracked, nil)
	if err := r.Register(b); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	got, ok := r.Get("/p/web")
	if !ok || got != a {
		t.Fatal("duplicate register replaced the original session")
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(New("/p/api", "npm start", ModeTracked, nil))
	r.Remove("/p/api")
	r.Remove("/p/api")
	if r.Has("/p/api") {
		t.Fatal("entry survived remove")
	}
}

func TestRegistryRemoveIf(t *testing.T) {
	r := NewRegistry()
	old := New("/p/web", "npm run dev", ModeTracked, nil)
	_ = r.Register(old)
	r.Remove("/p/web")
	replacement := New("/p/web", "npm run dev", ModeTracked, nil)
	_ = r.Register(replacement)

	// A stale exit handler for the old session must not evict the new one.
	r.RemoveIf("/p/web", old)
	if got, ok := r.Get("/p/web"); !ok || got != replacement {
		t.Fatal("stale RemoveIf evicted the replacement session")
	}
	r.RemoveIf("/p/web", replacement)
	if r.Has("/p/web") {
		t.Fatal("matching RemoveIf left the entry behind")
	}
}

func TestRegistryURL(t *testing.T) {
	r := NewRegistry()
	s := New("/p/web", "npm run dev", ModeTracked, nil)
	_ = r.Register(s)
	if _, ok := r.URL("/p/web"); ok {
		t.Fatal("URL present before detection")
	}
	s.Detector().Feed([]byte("Local: http://localhost:5173/\n"))
	if u, ok := r.URL("/p/web"); !ok || u != "http://localhost:5173" {
		t.Fatalf("URL = %q %v", u, ok)
	}
	if _, ok := r.URL("/p/unknown"); ok {
		t.Fatal("URL for unknown key")
	}
}

func TestRegistryKeysSorted(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(New("/p/zeta", "npm run dev", ModeTracked, nil))
	_ = r.Register(New("/p/alpha", "npm run dev", ModeTracked, nil))
	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "/p/alpha" || keys[1] != "/p/zeta" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestRegistryClearAll(t *testing.T) {
	requireUnix(t)
	r := NewRegistry()
	s := New(t.TempDir(), "sleep 30", ModeTracked, nil)
	if err := s.Launch(nil, nil); err != nil {
		t.Fatalf("launch: %v", err)
	}
	_ = r.Register(s)
	_ = r.Register(New("/p/detached", "npm run dev", ModeDetached, nil))

	r.ClearAll(2 * time.Second)
	if r.Len() != 0 {
		t.Fatalf("registry not empty after ClearAll: %d", r.Len())
	}
	deadline := time.Now().Add(3 * time.Second)
	for s.Alive() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if s.Alive() {
		t.Fatal("tracked child survived ClearAll")
	}
}
