package session

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrDuplicateKey = errors.New("session already registered for key")

// Registry is the single source of truth mapping project key to its live
// session. At most one session per key at any time.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[key]
	return ok
}

// Register adds s under its key. Registration is atomic: a second session
// for the same key is rejected and the existing one is untouched.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Key()]; ok {
		return ErrDuplicateKey
	}
	r.sessions[s.Key()] = s
	return nil
}

func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// URL returns the detected readiness URL for key, if any.
func (r *Registry) URL(key string) (string, bool) {
	r.mu.RLock()
	s, ok := r.sessions[key]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	return s.URL()
}

// Remove drops the entry for key. Removing an absent key is a no-op.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}

// RemoveIf drops key only while it still maps to s. Exit handlers use it
// so a stale callback cannot evict a newer session for the same key.
func (r *Registry) RemoveIf(key string, s *Session) {
	r.mu.Lock()
	if cur, ok := r.sessions[key]; ok && cur == s {
		delete(r.sessions, key)
	}
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Keys returns the registered project keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// All returns the registered sessions ordered by key.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ClearAll stops every tracked session and empties the registry. Used once
// at host application exit.
func (r *Registry) ClearAll(grace time.Duration) {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.Stop(grace)
	}
}
