package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

// DefaultSessionID names the session that exists from startup.
const DefaultSessionID = "default"

// Registry holds the open operator sessions and fans telemetry out to all
// of them. Sessions never share state.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	sessions map[string]*Session
	log      log.Logger
}

// NewRegistry returns a Registry with the default session already open.
func NewRegistry(cfg Config) *Registry {
	cfg = cfg.withDefaults()
	r := &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		log:      cfg.Logger.WithName("sessions"),
	}
	r.openLocked(DefaultSessionID)
	return r
}

// Open creates a new session with a random id.
func (r *Registry) Open() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked(uuid.NewString())
}

func (r *Registry) openLocked(id string) *Session {
	s := NewSession(id, r.cfg)
	r.sessions[id] = s
	metrics.SessionsActive.Inc()
	r.log.Info("Session opened", "sessionID", id)
	return s
}

// Get looks up a session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, core.ErrSessionNotFound)
	}
	return s, nil
}

// Close tears down and forgets a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q: %w", id, core.ErrSessionNotFound)
	}
	s.Close()
	metrics.SessionsActive.Dec()
	return nil
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.SessionsActive.Dec()
	}
}

// IDs lists the open session ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ingest applies snap to every open session.
func (r *Registry) Ingest(ctx context.Context, snap *model.Snapshot) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Ingest(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.Reduce(utilerrors.NewAggregate(errs))
}

// Reconfigure changes the tuning used for sessions opened from now on.
func (r *Registry) Reconfigure(apply func(*Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apply(&r.cfg)
	r.cfg = r.cfg.withDefaults()
}
