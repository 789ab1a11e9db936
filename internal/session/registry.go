package session

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/padsync/padsync/internal/doc"
)

// Handle names one session in a registry.
type Handle string

// Registry owns the association from handles to live sessions. Explicit
// ownership, scoped to whoever created the registry; nothing module-level
// leaks sessions across owners.
type Registry struct {
	mu       sync.Mutex
	sessions map[Handle]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: map[Handle]*Session{},
	}
}

// Open creates a session for d and registers it. The caller disposes it
// when done; disposal drops the registry entry.
func (r *Registry) Open(d doc.Document, cfg Config, settings *Settings) (*Session, error) {
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("open session: AgentID is required")
	}

	h := Handle(ulid.Make().String())
	s := newSession(h, d, cfg, settings, r)

	r.mu.Lock()
	r.sessions[h] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(h Handle) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[h]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, h)
}
