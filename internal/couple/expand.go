package couple

import "github.com/yungbote/kinview-backend/internal/person"

// CollapseAll hides every visible joint child.
func (c *Couple) CollapseAll() bool {
	if len(c.joint) == 0 {
		return false
	}
	c.FocusPerson().Record.CollapseChildren(c.joint...)
	c.refresh()
	return true
}

func (c *Couple) Collapse(child person.ID) bool {
	if !contains(c.joint, child) {
		return false
	}
	c.FocusPerson().Record.CollapseChildren(child)
	c.refresh()
	return true
}

// ExpandAll shows every collapsed joint child again.
func (c *Couple) ExpandAll() bool {
	if len(c.collapsed) == 0 {
		return false
	}
	c.FocusPerson().Record.ExpandChildren(c.collapsed...)
	c.refresh()
	return true
}

func (c *Couple) Expand(child person.ID) bool {
	if !contains(c.collapsed, child) {
		return false
	}
	c.FocusPerson().Record.ExpandChildren(child)
	c.refresh()
	return true
}

// CanExpandAncestors reports whether a slot is not loaded, or has a known
// parent whose own parents are not loaded.
func (c *Couple) CanExpandAncestors() bool {
	for _, s := range []person.Ref{c.a, c.b} {
		if !s.Present() || s.Record.IsBrickWall() {
			continue
		}
		if !s.IsLoaded() {
			return true
		}
		for _, pid := range parentIDs(s.Record) {
			rec, ok := c.lookup.GetIfPresent(pid)
			if !ok || !rec.Has(person.Parents) {
				return true
			}
		}
	}
	return false
}

// CanExpandDescendants reports whether a slot has spouses that are not
// cached, or suspected children that are not loaded.
func (c *Couple) CanExpandDescendants() bool {
	for _, s := range []person.Ref{c.a, c.b} {
		if !s.Present() {
			continue
		}
		spouses := s.Record.SpouseIDs()
		loaded := 0
		for _, id := range spouses {
			if _, ok := c.lookup.GetIfPresent(id); ok {
				loaded++
			}
		}
		if loaded < len(spouses) {
			return true
		}
		if s.Record.ChildrenSuspected() && !s.Record.Has(person.Children) {
			return true
		}
	}
	return false
}

// ChangePartner points the preferred spouse of personID, one of the two
// slots, at partnerID. The couple itself is unchanged; the next render
// pairs the new partner.
func (c *Couple) ChangePartner(personID, partnerID person.ID) error {
	var stable person.Ref
	switch personID {
	case c.a.ID():
		stable = c.a
	case c.b.ID():
		stable = c.b
	}
	if !stable.IsLoaded() {
		return ErrPartnerInconsistency
	}
	if !stable.Record.SetPreferredSpouse(partnerID, c.lookup) {
		return ErrPartnerInconsistency
	}
	return nil
}

// AncestorCouples returns one parent couple per slot with known parents,
// left slot first.
func (c *Couple) AncestorCouples() []*Couple {
	var out []*Couple
	for _, s := range []person.Ref{c.a, c.b} {
		if !s.Present() || s.Record.IsBrickWall() {
			continue
		}
		father, mother := c.parents(s.Record)
		if !father.Present() && !mother.Present() {
			continue
		}
		if !mother.Present() {
			mother = person.NoSpouse()
		}
		pc, err := New(c.lookup, c.prefix+"/"+s.Key(), father, mother, Left, false)
		if err != nil {
			continue
		}
		out = append(out, pc)
	}
	return out
}

// DescendantCouples returns one couple per visible joint child, paired with
// the child's preferred spouse.
func (c *Couple) DescendantCouples() []*Couple {
	out := make([]*Couple, 0, len(c.joint))
	for _, id := range c.joint {
		child := resolve(c.lookup, id)
		dc, err := New(c.lookup, c.prefix+"/"+id.String(), child, person.Ref{}, Left, false)
		if err != nil {
			continue
		}
		out = append(out, dc)
	}
	return out
}

// parents resolves a record's father and mother. Parent ids without a
// father/mother attribute fill the gaps by gender.
func (c *Couple) parents(rec *person.Record) (father, mother person.Ref) {
	father = resolve(c.lookup, rec.FatherID)
	mother = resolve(c.lookup, rec.MotherID)
	for _, pid := range rec.ParentIDs() {
		if pid == rec.FatherID || pid == rec.MotherID {
			continue
		}
		ref := resolve(c.lookup, pid)
		switch {
		case !father.Present() && !ref.Record.IsFemale():
			father = ref
		case !mother.Present():
			mother = ref
		}
	}
	return father, mother
}

func parentIDs(rec *person.Record) []person.ID {
	var out []person.ID
	for _, id := range append([]person.ID{rec.FatherID, rec.MotherID}, rec.ParentIDs()...) {
		if id != "" && !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []person.ID, id person.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
