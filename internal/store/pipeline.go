package store

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
)

// LoadFamily loads id fully, then its spouses and children in parallel.
// Spouses need children loaded for joint-children computation; children
// need spouses and children for the next descendant level.
func (s *Store) LoadFamily(ctx context.Context, id person.ID) (*person.Record, error) {
	rec, err := s.GetWithLoad(ctx, id, person.Full)
	if err != nil {
		return nil, err
	}
	if err := s.loadAll(ctx, rec.SpouseIDs(), person.Full); err != nil {
		return nil, err
	}
	if err := s.loadAll(ctx, rec.ChildrenIDs(), person.Spouses|person.Children); err != nil {
		return nil, err
	}
	return rec, nil
}

// LoadAncestors loads generations of ancestors of id, one generation at a
// time with the members of a generation fetched in parallel. An ancestor
// reached twice is fetched once. Brick-wall people stop the walk.
func (s *Store) LoadAncestors(ctx context.Context, id person.ID, generations int) error {
	seen := map[person.ID]bool{id: true}
	frontier := []person.ID{id}
	for gen := 0; gen <= generations && len(frontier) > 0; gen++ {
		if err := s.loadLevel(ctx, gen, frontier); err != nil {
			return err
		}
		if gen == generations {
			break
		}
		var next []person.ID
		for _, pid := range frontier {
			rec, ok := s.GetIfPresent(pid)
			if !ok || rec.IsBrickWall() {
				continue
			}
			for _, parent := range parentsOf(rec) {
				if !seen[parent] {
					seen[parent] = true
					next = append(next, parent)
				}
			}
		}
		frontier = next
	}
	return nil
}

// LoadDescendants loads generations of descendants of id with their
// spouses. Collapsed children are not followed.
func (s *Store) LoadDescendants(ctx context.Context, id person.ID, generations int) error {
	seen := map[person.ID]bool{id: true}
	frontier := []person.ID{id}
	for gen := 0; gen <= generations && len(frontier) > 0; gen++ {
		if err := s.loadLevel(ctx, gen, frontier); err != nil {
			return err
		}
		var spouses []person.ID
		for _, pid := range frontier {
			if rec, ok := s.GetIfPresent(pid); ok {
				spouses = append(spouses, rec.SpouseIDs()...)
			}
		}
		if err := s.loadAll(ctx, spouses, person.Spouses|person.Children); err != nil {
			return err
		}
		if gen == generations {
			break
		}
		var next []person.ID
		for _, pid := range frontier {
			rec, ok := s.GetIfPresent(pid)
			if !ok {
				continue
			}
			collapsed := map[person.ID]bool{}
			for _, c := range rec.CollapsedChildren() {
				collapsed[c] = true
			}
			for _, c := range rec.ChildrenIDs() {
				if !seen[c] && !collapsed[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		frontier = next
	}
	return nil
}

// loadLevel loads one generation fully. The root must exist; deeper
// levels tolerate unknown relatives.
func (s *Store) loadLevel(ctx context.Context, gen int, ids []person.ID) error {
	if gen == 0 {
		for _, id := range ids {
			if _, err := s.GetWithLoad(ctx, id, person.Full); err != nil {
				return err
			}
		}
		return nil
	}
	return s.loadAll(ctx, ids, person.Full)
}

// loadAll fetches ids concurrently. A relative the source does not know is
// skipped; any other failure cancels the rest and is returned.
func (s *Store) loadAll(ctx context.Context, ids []person.ID, relations person.Richness) error {
	if len(ids) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, id := range ids {
		id := id
		if id == "" {
			continue
		}
		g.Go(func() error {
			_, err := s.GetWithLoad(gctx, id, relations)
			if errors.Is(err, loader.ErrNotFound) {
				s.log.Warn("relative not found", "person_id", id)
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

func parentsOf(rec *person.Record) []person.ID {
	var out []person.ID
	add := func(id person.ID) {
		for _, have := range out {
			if have == id {
				return
			}
		}
		if id != "" {
			out = append(out, id)
		}
	}
	add(rec.FatherID)
	add(rec.MotherID)
	for _, p := range rec.ParentIDs() {
		add(p)
	}
	return out
}
