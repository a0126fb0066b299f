package tree

import (
	"errors"
	"fmt"

	"github.com/yungbote/kinview-backend/internal/couple"
	"github.com/yungbote/kinview-backend/internal/person"
)

var ErrRootNotLoaded = errors.New("tree: root person not loaded")

type Direction string

const (
	Up   Direction = "ancestors"
	Down Direction = "descendants"
)

// ParseDirection accepts "ancestors"/"up" and "descendants"/"down".
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "ancestors", "up":
		return Up, true
	case "descendants", "down":
		return Down, true
	}
	return "", false
}

// Slot is one side of a rendered couple.
type Slot struct {
	Kind   string       `json:"kind"`
	Person *person.View `json:"person,omitempty"`
}

// Node is one couple in the forest handed to the layout component.
type Node struct {
	ID         string `json:"id"`
	Prefix     string `json:"prefix"`
	Generation int    `json:"generation"`
	Focus      string `json:"focus"`
	A          Slot   `json:"a"`
	B          Slot   `json:"b"`

	JointChildren     []person.ID `json:"joint_children,omitempty"`
	CollapsedChildren []person.ID `json:"collapsed_children,omitempty"`
	Expandable        bool        `json:"expandable"`

	Children []*Node `json:"children,omitempty"`
}

type frame struct {
	c    *couple.Couple
	gen  int
	kids []*frame
}

// Ancestors builds the ancestor forest of root from cached records only.
// Every record reached has its generation occurrences reset and recounted,
// so a person reached along two paths reports two occurrences.
func Ancestors(lookup person.Lookup, root person.ID, generations int) (*Node, error) {
	rec, ok := lookup.GetIfPresent(root)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotLoaded, root)
	}
	c, err := couple.New(lookup, "a", person.Loaded(rec), person.NoSpouse(), couple.Left, true)
	if err != nil {
		return nil, err
	}
	top := walk(c, 0, generations, func(c *couple.Couple) []*couple.Couple { return c.AncestorCouples() })
	count(top)
	return render(top, Up), nil
}

// Descendants builds the descendant forest of root paired with its
// preferred spouse. Collapsed children are not followed. Generation
// occurrences are left as the last ancestor build counted them.
func Descendants(lookup person.Lookup, root person.ID, generations int) (*Node, error) {
	rec, ok := lookup.GetIfPresent(root)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotLoaded, root)
	}
	c, err := couple.New(lookup, DescendantPrefix, person.Loaded(rec), person.Ref{}, couple.Left, true)
	if err != nil {
		return nil, err
	}
	top := walk(c, 0, generations, func(c *couple.Couple) []*couple.Couple { return c.DescendantCouples() })
	return render(top, Down), nil
}

// DescendantPrefix is the prefix of the root couple of a descendant tree.
const DescendantPrefix = "d"

// FindCouple rebuilds the couple a client addressed by the prefix of its
// rendered node, its focus person and partner, so the couple's ID matches
// the node's. An empty prefix is the descendant root; an empty partner means
// the focus person's preferred spouse.
func FindCouple(lookup person.Lookup, prefix string, focus, partner person.ID) (*couple.Couple, error) {
	rec, ok := lookup.GetIfPresent(focus)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotLoaded, focus)
	}
	b := person.Ref{}
	if partner != "" {
		if p, ok := lookup.GetIfPresent(partner); ok {
			b = person.Loaded(p)
		} else {
			b = person.NotLoaded(partner)
		}
	}
	if prefix == "" {
		prefix = DescendantPrefix
	}
	return couple.New(lookup, prefix, person.Loaded(rec), b, couple.Left, false)
}

func walk(c *couple.Couple, gen, limit int, next func(*couple.Couple) []*couple.Couple) *frame {
	f := &frame{c: c, gen: gen}
	if gen >= limit {
		return f
	}
	for _, k := range next(c) {
		f.kids = append(f.kids, walk(k, gen+1, limit, next))
	}
	return f
}

func count(top *frame) {
	var all []*frame
	var collect func(f *frame)
	collect = func(f *frame) {
		all = append(all, f)
		for _, k := range f.kids {
			collect(k)
		}
	}
	collect(top)

	for _, f := range all {
		for _, s := range []person.Ref{f.c.A(), f.c.B()} {
			if s.IsLoaded() {
				s.Record.ResetGenerations()
			}
		}
	}
	for _, f := range all {
		for _, s := range []person.Ref{f.c.A(), f.c.B()} {
			if s.IsLoaded() {
				s.Record.AddGeneration(f.gen)
			}
		}
	}
}

func render(f *frame, dir Direction) *Node {
	c := f.c
	n := &Node{
		ID:                c.ID(),
		Prefix:            c.Prefix(),
		Generation:        f.gen,
		Focus:             c.Focus().String(),
		A:                 slot(c.A()),
		B:                 slot(c.B()),
		JointChildren:     c.JointChildren(),
		CollapsedChildren: c.CollapsedChildren(),
	}
	if dir == Up {
		n.Expandable = c.CanExpandAncestors()
	} else {
		n.Expandable = c.CanExpandDescendants()
	}
	for _, k := range f.kids {
		n.Children = append(n.Children, render(k, dir))
	}
	return n
}

func slot(r person.Ref) Slot {
	s := Slot{Kind: r.Kind.String()}
	if r.Present() {
		v := r.Record.View()
		s.Person = &v
	}
	return s
}
