package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/couple"
	"github.com/yungbote/kinview-backend/internal/events"
	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
	"github.com/yungbote/kinview-backend/internal/store"
	"github.com/yungbote/kinview-backend/internal/tree"
)

var ErrNoSubject = errors.New("session: no subject")

// CoupleState is what a collapse or expand leaves behind.
type CoupleState struct {
	ID                string      `json:"id"`
	JointChildren     []person.ID `json:"joint_children"`
	CollapsedChildren []person.ID `json:"collapsed_children"`
	Changed           bool        `json:"changed"`
}

// Session is one tree view. It owns its person cache; view operations are
// serialized by mu.
type Session struct {
	ID string

	log   *logger.Logger
	bus   events.Bus
	store *store.Store
	tree  config.TreeConfig

	mu      sync.Mutex
	subject person.ID

	created  time.Time
	lastUsed atomic.Int64
}

func newSession(id string, l loader.Loader, bus events.Bus, cfg config.SessionConfig, treeCfg config.TreeConfig, log *logger.Logger, now time.Time) *Session {
	s := &Session{
		ID:      id,
		log:     log.With("session_id", id),
		bus:     bus,
		tree:    treeCfg,
		created: now,
	}
	s.lastUsed.Store(now.UnixNano())
	s.store = store.New(l, s.log, store.Options{
		Concurrency: cfg.LoadConcurrency,
		OnUpdate:    s.publishUpdate,
	})
	return s
}

func (s *Session) publishUpdate(rec *person.Record) {
	s.publish(events.Event{
		Type:     events.PersonUpdated,
		PersonID: rec.ID(),
		Richness: rec.Richness().Fields(),
	})
}

func (s *Session) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	e.SessionID = s.ID
	e.At = time.Now().UTC()
	if err := s.bus.Publish(context.Background(), e); err != nil {
		s.log.Warn("event publish failed", "type", e.Type, "error", err)
	}
}

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *Session) Created() time.Time { return s.created }

func (s *Session) Subject() person.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subject
}

// Store exposes the session cache to read-only consumers.
func (s *Session) Store() *store.Store { return s.store }

// Open loads the subject with spouses and children and makes it the root
// of the session's trees.
func (s *Session) Open(ctx context.Context, subject person.ID) (*person.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(ctx, subject)
}

func (s *Session) open(ctx context.Context, subject person.ID) (*person.Record, error) {
	s.touch()
	rec, err := s.store.LoadFamily(ctx, subject)
	if err != nil {
		return nil, err
	}
	s.subject = rec.ID()
	return rec, nil
}

// SwitchSubject drops the cache and opens a new subject.
func (s *Session) SwitchSubject(ctx context.Context, subject person.ID) (*person.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
	s.subject = ""
	rec, err := s.open(ctx, subject)
	if err != nil {
		return nil, err
	}
	s.publish(events.Event{Type: events.SubjectChanged, PersonID: rec.ID()})
	return rec, nil
}

// Person returns a record carrying at least the requested relations.
func (s *Session) Person(ctx context.Context, id person.ID, relations person.Richness) (*person.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.store.GetWithLoad(ctx, id, relations)
}

func (s *Session) generations(n int) int {
	if n <= 0 {
		n = s.tree.DefaultGenerations
	}
	if s.tree.MaxGenerations > 0 && n > s.tree.MaxGenerations {
		n = s.tree.MaxGenerations
	}
	return n
}

func (s *Session) root(id person.ID) (person.ID, error) {
	if id != "" {
		return id, nil
	}
	if s.subject == "" {
		return "", ErrNoSubject
	}
	return s.subject, nil
}

// AncestorTree loads and builds the ancestor tree of root, or of the
// subject when root is empty.
func (s *Session) AncestorTree(ctx context.Context, root person.ID, generations int) (*tree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	id, err := s.root(root)
	if err != nil {
		return nil, err
	}
	gens := s.generations(generations)
	if err := s.store.LoadAncestors(ctx, id, gens); err != nil {
		return nil, err
	}
	return tree.Ancestors(s.store, id, gens)
}

func (s *Session) DescendantTree(ctx context.Context, root person.ID, generations int) (*tree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	id, err := s.root(root)
	if err != nil {
		return nil, err
	}
	gens := s.generations(generations)
	if err := s.store.LoadDescendants(ctx, id, gens); err != nil {
		return nil, err
	}
	return tree.Descendants(s.store, id, gens)
}

// ExpandAncestors loads more generations above id and returns its subtree.
func (s *Session) ExpandAncestors(ctx context.Context, id person.ID, generations int) (*tree.Node, error) {
	if id == "" {
		return nil, fmt.Errorf("expand: %w", person.ErrMissingID)
	}
	return s.AncestorTree(ctx, id, generations)
}

// ExpandDescendants loads more generations below id and returns its subtree.
func (s *Session) ExpandDescendants(ctx context.Context, id person.ID, generations int) (*tree.Node, error) {
	if id == "" {
		return nil, fmt.Errorf("expand: %w", person.ErrMissingID)
	}
	return s.DescendantTree(ctx, id, generations)
}

// Collapse hides child, or every visible joint child when child is empty,
// in the couple of focus and partner. prefix is the prefix of the rendered
// node the couple came from, so the returned ID matches the next render.
func (s *Session) Collapse(ctx context.Context, prefix string, focus, partner, child person.ID) (*CoupleState, error) {
	return s.withCouple(ctx, prefix, focus, partner, func(c *couple.Couple) bool {
		if child == "" {
			return c.CollapseAll()
		}
		return c.Collapse(child)
	})
}

// Uncollapse is the inverse of Collapse.
func (s *Session) Uncollapse(ctx context.Context, prefix string, focus, partner, child person.ID) (*CoupleState, error) {
	return s.withCouple(ctx, prefix, focus, partner, func(c *couple.Couple) bool {
		if child == "" {
			return c.ExpandAll()
		}
		return c.Expand(child)
	})
}

func (s *Session) withCouple(ctx context.Context, prefix string, focus, partner person.ID, fn func(c *couple.Couple) bool) (*CoupleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if _, err := s.store.GetWithLoad(ctx, focus, person.Spouses|person.Children); err != nil {
		return nil, err
	}
	c, err := tree.FindCouple(s.store, prefix, focus, partner)
	if err != nil {
		if errors.Is(err, couple.ErrInvalidCouple) {
			s.log.Error("invalid couple", "focus_id", focus, "partner_id", partner)
		}
		return nil, err
	}
	changed := fn(c)
	return &CoupleState{
		ID:                c.ID(),
		JointChildren:     c.JointChildren(),
		CollapsedChildren: c.CollapsedChildren(),
		Changed:           changed,
	}, nil
}

// ChangePartner makes partnerID the preferred spouse of personID and loads
// the new partner's family for the next render.
func (s *Session) ChangePartner(ctx context.Context, personID, partnerID person.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if _, err := s.store.GetWithLoad(ctx, personID, person.Full); err != nil {
		return err
	}
	c, err := tree.FindCouple(s.store, "", personID, "")
	if err != nil {
		return err
	}
	if err := c.ChangePartner(personID, partnerID); err != nil {
		s.log.Warn("partner change rejected", "person_id", personID, "partner_id", partnerID)
		return err
	}
	if _, err := s.store.GetWithLoad(ctx, partnerID, person.Full); err != nil {
		return err
	}
	return nil
}

// ToggleBrickWall flips the brick-wall mark on id and returns the new value.
func (s *Session) ToggleBrickWall(ctx context.Context, id person.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	rec, err := s.store.GetWithLoad(ctx, id, person.None)
	if err != nil {
		return false, err
	}
	v := !rec.IsBrickWall()
	rec.SetBrickWall(v)
	return v, nil
}

func (s *Session) close() {
	s.mu.Lock()
	s.store.Clear()
	s.subject = ""
	s.mu.Unlock()
	s.publish(events.Event{Type: events.SessionClosed})
}
