package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/events"
	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/observability"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

var (
	ErrNotFound        = errors.New("session: not found")
	ErrTooManySessions = errors.New("session: too many sessions")
)

// Registry holds the live sessions.
type Registry struct {
	loader  loader.Loader
	bus     events.Bus
	cfg     config.SessionConfig
	treeCfg config.TreeConfig
	log     *logger.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(l loader.Loader, bus events.Bus, cfg config.SessionConfig, treeCfg config.TreeConfig, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		loader:   l,
		bus:      bus,
		cfg:      cfg,
		treeCfg:  treeCfg,
		log:      log.With("service", "SessionRegistry"),
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Create opens a session on subject. The session is only registered once
// the subject has loaded.
func (r *Registry) Create(ctx context.Context, subject person.ID) (*Session, *person.Record, error) {
	if subject == "" {
		return nil, nil, ErrNoSubject
	}
	if r.cfg.MaxSessions > 0 && r.Len() >= r.cfg.MaxSessions {
		return nil, nil, ErrTooManySessions
	}
	s := newSession(uuid.NewString(), r.loader, r.bus, r.cfg, r.treeCfg, r.log, r.now())
	rec, err := s.Open(ctx, subject)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		return nil, nil, ErrTooManySessions
	}
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	observability.Current().SetSessions(n)

	r.log.Info("session opened", "session_id", s.ID, "subject", rec.ID(), "sessions", n)
	return s, rec, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	observability.Current().SetSessions(n)
	if !ok {
		return ErrNotFound
	}
	s.close()
	r.log.Info("session closed", "session_id", id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL.
func (r *Registry) Sweep() int {
	ttl := r.cfg.IdleTTL.Duration
	if ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-ttl)

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	observability.Current().SetSessions(n)

	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		r.log.Info("idle sessions expired", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx ends, then closes the rest.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.cfg.SweepInterval.Duration
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case <-t.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()
	observability.Current().SetSessions(0)
	for _, s := range all {
		s.close()
	}
}
