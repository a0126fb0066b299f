package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/observability"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

type Options struct {
	// Concurrency bounds parallel fetches in the staged loads. Zero means 8.
	Concurrency int
	// OnUpdate is called after a fetched record changes the cache.
	OnUpdate func(rec *person.Record)
}

// Store caches records by id. A cached record is only ever replaced by one
// whose richness covers it, so richness per id never decreases.
type Store struct {
	loader loader.Loader
	log    *logger.Logger
	opts   Options

	mu     sync.RWMutex
	people map[person.ID]*person.Record

	flight singleflight.Group
}

var _ person.Lookup = (*Store)(nil)

func New(l loader.Loader, log *logger.Logger, opts Options) *Store {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		loader: l,
		log:    log.With("component", "PersonStore"),
		opts:   opts,
		people: map[person.ID]*person.Record{},
	}
}

// GetIfPresent never does I/O.
func (s *Store) GetIfPresent(id person.ID) (*person.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.people[id]
	return rec, ok
}

// Resolve turns an id into a Ref: the cached record, or a placeholder when
// the id is not cached. An empty id resolves to an unset Ref.
func (s *Store) Resolve(id person.ID) person.Ref {
	if id == "" {
		return person.Ref{}
	}
	if rec, ok := s.GetIfPresent(id); ok {
		return person.Loaded(rec)
	}
	return person.NotLoaded(id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.people)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	n := len(s.people)
	s.people = map[person.ID]*person.Record{}
	s.mu.Unlock()
	s.log.Debug("store cleared", "dropped", n)
}

// GetWithLoad returns the cached record when its richness covers required.
// Otherwise it fetches required plus whatever is already cached, so the
// result can supersede the cached copy.
//
// Concurrent calls for the same id and relation set share one fetch. A fetch
// is not cancelled with ctx: it completes and merges even when the caller
// has given up.
func (s *Store) GetWithLoad(ctx context.Context, id person.ID, required person.Richness) (*person.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("store: %w", person.ErrMissingID)
	}
	want := required
	if rec, ok := s.GetIfPresent(id); ok {
		if rec.Richness().Covers(required) {
			observability.Current().IncStoreLookup(true)
			return rec, nil
		}
		want |= rec.Richness()
	}
	observability.Current().IncStoreLookup(false)

	key := id.String() + "|" + want.String()
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.fetch(fetchCtx, id, want)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug("store fetch shared", "person_id", id, "relations", want.String())
		}
		return res.Val.(*person.Record), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) fetch(ctx context.Context, id person.ID, relations person.Richness) (*person.Record, error) {
	if s.loader == nil {
		return nil, errors.New("store: no loader")
	}
	raw, err := s.loader.Get(ctx, id, relations)
	if err != nil {
		return nil, err
	}
	if raw.ID == "" {
		raw.ID = id
	}
	rec, err := person.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	stored := s.Put(rec)
	s.cacheRelatives(raw)
	return stored, nil
}

// Put merges rec into the cache and returns what is stored afterwards:
//   - rec covers the cached richness: rec replaces it, inheriting view state.
//   - the cached record covers rec: rec is discarded.
//   - neither: both are merged into a new record with the union richness.
func (s *Store) Put(rec *person.Record) *person.Record {
	id := rec.ID()
	s.mu.Lock()
	cur, ok := s.people[id]
	var stored *person.Record
	outcome := "insert"
	switch {
	case !ok:
		stored = rec
	case rec.Richness().Covers(cur.Richness()):
		stored, outcome = person.Replace(cur, rec), "replace"
	case cur.Richness().Covers(rec.Richness()):
		stored, outcome = cur, "discard"
	default:
		stored, outcome = person.Merge(rec, cur), "union"
	}
	s.people[id] = stored
	s.mu.Unlock()
	observability.Current().IncStoreMerge(outcome)

	if outcome == "discard" {
		s.log.Debug("store kept richer record",
			"person_id", id,
			"cached", cur.Richness().String(),
			"fetched", rec.Richness().String(),
		)
		return stored
	}
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(stored)
	}
	return stored
}

// cacheRelatives stores the primary fields of nested relatives that are not
// cached yet, so names render before the relative itself is fetched. A
// relative cached in the meantime goes through the usual merge.
func (s *Store) cacheRelatives(raw *person.Raw) {
	for _, rel := range person.Relatives(raw) {
		rel := rel
		if _, ok := s.GetIfPresent(rel.ID); ok {
			continue
		}
		rec, err := person.FromRaw(&rel)
		if err != nil {
			continue
		}
		s.Put(rec)
	}
}
