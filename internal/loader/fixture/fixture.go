package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
)

// File is the on-disk fixture layout. Each person lists its own father,
// mother and spouses; every other relation is derived.
type File struct {
	People []person.Raw `json:"people" yaml:"people"`
}

// Source answers Get from an in-memory family. It is used for local runs
// and tests.
type Source struct {
	people map[person.ID]person.Raw

	mu    sync.Mutex
	calls map[person.ID]int
	total int
}

var _ loader.Loader = (*Source)(nil)

// New derives parents, children, siblings and symmetric spouses from the
// flat list and returns a Source over the result.
func New(people []person.Raw) (*Source, error) {
	base := make(map[person.ID]person.Raw, len(people))
	for _, p := range people {
		if p.ID == "" {
			return nil, fmt.Errorf("fixture: %w", person.ErrMissingID)
		}
		if _, dup := base[p.ID]; dup {
			return nil, fmt.Errorf("fixture: duplicate id %s", p.ID)
		}
		base[p.ID] = p.Primary()
	}

	children := map[person.ID][]person.ID{}
	spouses := map[person.ID][]person.RawSpouse{}
	addSpouse := func(of person.ID, s person.RawSpouse) {
		for _, have := range spouses[of] {
			if have.ID == s.ID {
				return
			}
		}
		spouses[of] = append(spouses[of], s)
	}
	for _, p := range people {
		for _, parent := range []person.ID{p.Father, p.Mother} {
			if parent != "" {
				children[parent] = append(children[parent], p.ID)
			}
		}
		for _, s := range p.Spouses {
			if s.ID == "" {
				continue
			}
			mine := s
			mine.Raw = person.Raw{ID: s.ID}
			addSpouse(p.ID, mine)
			theirs := s
			theirs.Raw = person.Raw{ID: p.ID}
			addSpouse(s.ID, theirs)
		}
	}

	bag := func(id person.ID) person.Raw {
		if b, ok := base[id]; ok {
			return b
		}
		return person.Raw{ID: id}
	}

	out := make(map[person.ID]person.Raw, len(base))
	for id, b := range base {
		full := b
		full.Parents = map[person.ID]person.Raw{}
		for _, parent := range []person.ID{b.Father, b.Mother} {
			if parent != "" {
				full.Parents[parent] = bag(parent)
			}
		}
		full.Children = map[person.ID]person.Raw{}
		for _, c := range children[id] {
			full.Children[c] = bag(c)
		}
		full.Siblings = map[person.ID]person.Raw{}
		for parent := range full.Parents {
			for _, sib := range children[parent] {
				if sib != id {
					full.Siblings[sib] = bag(sib)
				}
			}
		}
		full.Spouses = make([]person.RawSpouse, 0, len(spouses[id]))
		for _, s := range spouses[id] {
			s.Raw = bag(s.ID)
			full.Spouses = append(full.Spouses, s)
		}
		if len(full.Children) > 0 {
			full.NoChildren = false
		}
		out[id] = full
	}
	return &Source{people: out, calls: map[person.ID]int{}}, nil
}

// ReadFile decodes a JSON or YAML fixture file without deriving relations.
func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	default:
		err = json.Unmarshal(b, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("fixture: parse %s: %w", path, err)
	}
	return &f, nil
}

// Load reads a fixture file and returns a Source over it.
func Load(path string) (*Source, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(f.People)
}

func (s *Source) Get(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls[id]++
	s.total++
	s.mu.Unlock()

	full, ok := s.people[id]
	if !ok {
		return nil, fmt.Errorf("fixture: %s: %w", id, loader.ErrNotFound)
	}
	// Nested bags keep the primary fields a real API sends along.
	out := full.Project(relations)
	return &out, nil
}

// IDs lists every person in the fixture.
func (s *Source) IDs() []person.ID {
	out := make([]person.ID, 0, len(s.people))
	for id := range s.people {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Source) CallsFor(id person.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}
