package person

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

type Gender string

const (
	Male          Gender = "Male"
	Female        Gender = "Female"
	UnknownGender Gender = ""
)

func parseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return Male
	case "female", "f":
		return Female
	default:
		return UnknownGender
	}
}

// Marriage is the per-spouse metadata carried on the Spouses array.
type Marriage struct {
	Date         string `json:"date"`
	EndDate      string `json:"end_date"`
	Location     string `json:"location,omitempty"`
	NotMarried   bool   `json:"not_married,omitempty"`
	DoNotDisplay bool   `json:"do_not_display,omitempty"`
}

// Lookup resolves ids against a cache without I/O.
type Lookup interface {
	GetIfPresent(id ID) (*Record, bool)
}

var ErrMissingID = errors.New("person: raw record has no id")

// Record is one profile. Attributes and relation ids are fixed at
// construction; the preferred spouse and the view state are the only
// mutable parts, each behind its own lock.
type Record struct {
	id ID

	Name            string
	FirstName       string
	MiddleName      string
	LastNameAtBirth string
	LastNameCurrent string
	BirthDate       string
	DeathDate       string
	BirthLocation   string
	DeathLocation   string
	Gender          Gender
	Privacy         int
	Living          bool
	NoChildren      bool
	FatherID        ID
	MotherID        ID

	parentIDs     []ID
	childIDs      []ID
	siblingIDs    []ID
	spouseIDs     []ID
	marriages     map[ID]Marriage
	noMoreSpouses bool
	richness      Richness
	placeholder   bool

	mu              sync.RWMutex
	preferredSpouse ID

	view *viewState

	diedYoungOnce sync.Once
	diedYoung     bool
}

func (r *Record) ID() ID { return r.id }

func (r *Record) Richness() Richness { return r.richness }

func (r *Record) Has(bits Richness) bool { return r.richness.Has(bits) }

// IsPlaceholder is true for the stand-in used when a referenced id is not cached.
func (r *Record) IsPlaceholder() bool { return r.placeholder }

func (r *Record) IsMale() bool   { return r.Gender == Male }
func (r *Record) IsFemale() bool { return r.Gender == Female }

func (r *Record) DisplayName() string {
	last := r.LastNameAtBirth
	if last == "" {
		last = r.LastNameCurrent
	}
	name := strings.TrimSpace(r.FirstName + " " + last)
	if name == "" {
		name = r.Name
	}
	if name == "" {
		return "?"
	}
	return name
}

func (r *Record) ParentIDs() []ID   { return cloneIDs(r.parentIDs) }
func (r *Record) ChildrenIDs() []ID { return cloneIDs(r.childIDs) }
func (r *Record) SiblingIDs() []ID  { return cloneIDs(r.siblingIDs) }
func (r *Record) SpouseIDs() []ID   { return cloneIDs(r.spouseIDs) }

func (r *Record) HasChild(id ID) bool  { return containsID(r.childIDs, id) }
func (r *Record) HasSpouse(id ID) bool { return containsID(r.spouseIDs, id) }

func (r *Record) Marriage(spouse ID) (Marriage, bool) {
	m, ok := r.marriages[spouse]
	return m, ok
}

// IsFullyEnriched: parents, spouses and children are all loaded.
func (r *Record) IsFullyEnriched() bool { return r.richness.Has(Full) }

// HasAnySpouse is true when spouses are loaded and at least one exists.
func (r *Record) HasAnySpouse() bool { return r.Has(Spouses) && len(r.spouseIDs) > 0 }

// HasNoSpouse is true when spouses are loaded and none exist. It is false
// when spouse data has simply not been fetched.
func (r *Record) HasNoSpouse() bool { return r.Has(Spouses) && len(r.spouseIDs) == 0 }

// DefinitelyHasNoSpouse also requires the source to flag that no more
// spouses are expected.
func (r *Record) DefinitelyHasNoSpouse() bool { return r.HasNoSpouse() && r.noMoreSpouses }

// ChildrenSuspected is true unless the source confirms there are no children.
func (r *Record) ChildrenSuspected() bool { return !r.NoChildren }

// IsDiedYoung reports a known lifespan of at most ten years.
func (r *Record) IsDiedYoung() bool {
	r.diedYoungOnce.Do(func() {
		by, dy := Year(r.BirthDate), Year(r.DeathDate)
		if by == 0 || dy == 0 {
			return
		}
		age := dy - by
		r.diedYoung = age >= 0 && age <= 10
	})
	return r.diedYoung
}

func (r *Record) PreferredSpouseID() ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preferredSpouse
}

// SetPreferredSpouse selects which spouse is shown by default. It fails
// without changing anything when id is not one of r's spouses. The partner,
// if cached and married to r, is pointed back at r; nothing further is
// touched.
func (r *Record) SetPreferredSpouse(id ID, lookup Lookup) bool {
	if !r.setPreferredLocal(id) {
		return false
	}
	if lookup == nil {
		return true
	}
	if partner, ok := lookup.GetIfPresent(id); ok && partner != r {
		partner.setPreferredLocal(r.id)
	}
	return true
}

func (r *Record) setPreferredLocal(id ID) bool {
	if id == "" || !containsID(r.spouseIDs, id) {
		return false
	}
	r.mu.Lock()
	r.preferredSpouse = id
	r.mu.Unlock()
	return true
}

// adopt carries state that must survive a record being replaced in the cache.
func (r *Record) adopt(old *Record) {
	if old == nil || old == r {
		return
	}
	r.view = old.view
	if prev := old.PreferredSpouseID(); prev != "" && containsID(r.spouseIDs, prev) {
		r.mu.Lock()
		r.preferredSpouse = prev
		r.mu.Unlock()
	}
}

// Replace returns next after moving the view state and preferred spouse of
// prev onto it. The store calls it when a richer record supersedes prev.
func Replace(prev, next *Record) *Record {
	next.adopt(prev)
	return next
}

// Merge builds a record holding every relation collection either input has.
// Scalars and overlapping collections come from newer.
func Merge(newer, older *Record) *Record {
	out := &Record{
		id:              newer.id,
		Name:            newer.Name,
		FirstName:       newer.FirstName,
		MiddleName:      newer.MiddleName,
		LastNameAtBirth: newer.LastNameAtBirth,
		LastNameCurrent: newer.LastNameCurrent,
		BirthDate:       newer.BirthDate,
		DeathDate:       newer.DeathDate,
		BirthLocation:   newer.BirthLocation,
		DeathLocation:   newer.DeathLocation,
		Gender:          newer.Gender,
		Privacy:         newer.Privacy,
		Living:          newer.Living,
		NoChildren:      newer.NoChildren,
		FatherID:        newer.FatherID,
		MotherID:        newer.MotherID,
		richness:        newer.richness | older.richness,
		view:            newViewState(),
	}
	pick := func(bit Richness) *Record {
		if newer.Has(bit) {
			return newer
		}
		return older
	}
	out.parentIDs = cloneIDs(pick(Parents).parentIDs)
	out.childIDs = cloneIDs(pick(Children).childIDs)
	out.siblingIDs = cloneIDs(pick(Siblings).siblingIDs)
	sp := pick(Spouses)
	out.spouseIDs = cloneIDs(sp.spouseIDs)
	out.noMoreSpouses = sp.noMoreSpouses
	out.marriages = make(map[ID]Marriage, len(sp.marriages))
	for k, v := range sp.marriages {
		out.marriages[k] = v
	}
	out.preferredSpouse = sp.PreferredSpouseID()
	out.adopt(older)
	return out
}

// preferredFrom picks the earliest known marriage; unknown dates sort last
// and ties keep source order. Hidden marriages lose to displayable ones.
func preferredFrom(ids []ID, marriages map[ID]Marriage) ID {
	if len(ids) == 0 {
		return ""
	}
	order := cloneIDs(ids)
	sort.SliceStable(order, func(i, j int) bool {
		mi, mj := marriages[order[i]], marriages[order[j]]
		if mi.DoNotDisplay != mj.DoNotDisplay {
			return !mi.DoNotDisplay
		}
		return sortKey(mi.Date) < sortKey(mj.Date)
	})
	return order[0]
}

func cloneIDs(in []ID) []ID {
	if in == nil {
		return nil
	}
	out := make([]ID, len(in))
	copy(out, in)
	return out
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
