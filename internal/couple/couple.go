package couple

import (
	"errors"
	"strconv"

	"github.com/yungbote/kinview-backend/internal/person"
)

// Side selects a slot. Negating a Side selects the other slot.
type Side int

const (
	Left  Side = -1
	Right Side = 1
)

func (s Side) Other() Side { return -s }

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

var (
	ErrInvalidCouple        = errors.New("couple: both slots empty")
	ErrPartnerInconsistency = errors.New("couple: partner is not a spouse")
)

// Couple pairs up to two people for one tree branch. It is rebuilt from the
// cache on every render; collapse state lives on the focus record.
type Couple struct {
	lookup person.Lookup
	prefix string
	a, b   person.Ref
	focus  Side
	isRoot bool

	joint     []person.ID
	collapsed []person.ID
}

// New builds a couple. An unset b defaults to a's preferred spouse, or the
// no-spouse value when a has none. Focus falls back to the first populated
// slot. Slots are reordered so a man sits left of a woman.
func New(lookup person.Lookup, prefix string, a, b person.Ref, focus Side, isRoot bool) (*Couple, error) {
	if lookup == nil {
		lookup = emptyLookup{}
	}
	if b.Kind == person.RefUnset && a.Present() {
		b = preferredSpouse(lookup, a.Record)
	}
	if !a.Present() && !b.Present() {
		return nil, ErrInvalidCouple
	}
	if a.Kind == person.RefUnset {
		a = person.NoSpouse()
	}
	if b.Kind == person.RefUnset {
		b = person.NoSpouse()
	}

	switch {
	case focus == Left && a.Present():
	case focus == Right && b.Present():
	case a.Present():
		focus = Left
	default:
		focus = Right
	}

	if (isFemale(a) && !isFemale(b)) || (isMale(b) && !isMale(a)) {
		a, b = b, a
		focus = focus.Other()
	}

	c := &Couple{lookup: lookup, prefix: prefix, a: a, b: b, focus: focus, isRoot: isRoot}
	c.refresh()
	return c, nil
}

func isFemale(r person.Ref) bool { return r.Present() && r.Record.IsFemale() }
func isMale(r person.Ref) bool   { return r.Present() && r.Record.IsMale() }

func preferredSpouse(lookup person.Lookup, rec *person.Record) person.Ref {
	id := rec.PreferredSpouseID()
	if id == "" {
		return person.NoSpouse()
	}
	return resolve(lookup, id)
}

func resolve(lookup person.Lookup, id person.ID) person.Ref {
	if id == "" {
		return person.Ref{}
	}
	if rec, ok := lookup.GetIfPresent(id); ok {
		return person.Loaded(rec)
	}
	return person.NotLoaded(id)
}

type emptyLookup struct{}

func (emptyLookup) GetIfPresent(person.ID) (*person.Record, bool) { return nil, false }

func (c *Couple) A() person.Ref  { return c.a }
func (c *Couple) B() person.Ref  { return c.b }
func (c *Couple) Focus() Side    { return c.focus }
func (c *Couple) Prefix() string { return c.prefix }
func (c *Couple) IsRoot() bool   { return c.isRoot }

func (c *Couple) Slot(s Side) person.Ref {
	if s == Right {
		return c.b
	}
	return c.a
}

// FocusPerson is the slot whose lineage the branch follows.
func (c *Couple) FocusPerson() person.Ref { return c.Slot(c.focus) }

func (c *Couple) Partner() person.Ref { return c.Slot(c.focus.Other()) }

// JointChildren are the visible children of the pair.
func (c *Couple) JointChildren() []person.ID { return append([]person.ID(nil), c.joint...) }

func (c *Couple) CollapsedChildren() []person.ID { return append([]person.ID(nil), c.collapsed...) }

// ID changes whenever the number of collapsed children does, so a layout
// engine treats a collapsed node as a different node. Only this pairing's
// collapsed children count; the focus person's other marriages keep their ids.
func (c *Couple) ID() string {
	id := c.prefix + "-" + c.a.Key() + "-" + c.b.Key()
	if n := len(c.collapsed); n > 0 {
		id += "-c" + strconv.Itoa(n)
	}
	return id
}

// allJoint is every child of the focus person shared with the partner,
// ignoring collapse state.
func (c *Couple) allJoint() []person.ID {
	f := c.FocusPerson()
	if !f.Present() {
		return nil
	}
	kids := f.Record.ChildrenIDs()
	p := c.Partner()
	if !p.Present() {
		return kids
	}
	out := make([]person.ID, 0, len(kids))
	for _, id := range kids {
		if p.Record.HasChild(id) || c.childOf(id, p.Record.ID()) {
			out = append(out, id)
		}
	}
	return out
}

// childOf covers a partner whose children are not loaded yet.
func (c *Couple) childOf(child, parent person.ID) bool {
	rec, ok := c.lookup.GetIfPresent(child)
	return ok && (rec.FatherID == parent || rec.MotherID == parent)
}

func (c *Couple) refresh() {
	all := c.allJoint()
	hidden := map[person.ID]bool{}
	if f := c.FocusPerson(); f.Present() {
		for _, id := range f.Record.CollapsedChildren() {
			hidden[id] = true
		}
	}
	c.joint = c.joint[:0]
	c.collapsed = c.collapsed[:0]
	for _, id := range all {
		if hidden[id] {
			c.collapsed = append(c.collapsed, id)
		} else {
			c.joint = append(c.joint, id)
		}
	}
}
