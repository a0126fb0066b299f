package person

import (
	"sort"
	"strings"
)

// FromRaw converts a loader bag into a Record. Relatives are kept as ids
// only; their own data lives in the store under their own ids.
func FromRaw(raw *Raw) (*Record, error) {
	if raw == nil || raw.ID == "" {
		return nil, ErrMissingID
	}
	r := &Record{
		id:              raw.ID,
		Name:            strings.TrimSpace(raw.Name),
		FirstName:       strings.TrimSpace(raw.FirstName),
		MiddleName:      strings.TrimSpace(raw.MiddleName),
		LastNameAtBirth: strings.TrimSpace(raw.LastNameAtBirth),
		LastNameCurrent: strings.TrimSpace(raw.LastNameCurrent),
		BirthDate:       normalizeDate(raw.BirthDate),
		DeathDate:       normalizeDate(raw.DeathDate),
		BirthLocation:   strings.TrimSpace(raw.BirthLocation),
		DeathLocation:   strings.TrimSpace(raw.DeathLocation),
		Gender:          parseGender(raw.Gender),
		Privacy:         int(raw.Privacy),
		Living:          bool(raw.IsLiving),
		NoChildren:      bool(raw.NoChildren),
		FatherID:        raw.Father,
		MotherID:        raw.Mother,
		noMoreSpouses:   strings.EqualFold(strings.TrimSpace(raw.DataStatus["Spouse"]), "blank"),
		richness:        raw.Has(),
		view:            newViewState(),
	}

	if raw.Parents != nil {
		r.parentIDs = orderedIDs(raw.Parents)
	}
	if raw.Children != nil {
		r.childIDs = orderedIDs(raw.Children)
	}
	if raw.Siblings != nil {
		r.siblingIDs = orderedIDs(raw.Siblings)
	}
	if raw.Spouses != nil {
		r.spouseIDs = make([]ID, 0, len(raw.Spouses))
		r.marriages = make(map[ID]Marriage, len(raw.Spouses))
		for _, s := range raw.Spouses {
			if s.ID == "" {
				continue
			}
			if _, dup := r.marriages[s.ID]; dup {
				continue
			}
			r.spouseIDs = append(r.spouseIDs, s.ID)
			r.marriages[s.ID] = Marriage{
				Date:         normalizeDate(s.MarriageDate),
				EndDate:      normalizeDate(s.MarriageEndDate),
				Location:     strings.TrimSpace(s.MarriageLocation),
				NotMarried:   bool(s.NotMarried),
				DoNotDisplay: bool(s.DoNotDisplay),
			}
		}
		r.preferredSpouse = preferredFrom(r.spouseIDs, r.marriages)
	}
	return r, nil
}

// Relatives returns the nested bags of raw that carry enough data to be
// cached on their own at primary richness.
func Relatives(raw *Raw) []Raw {
	if raw == nil {
		return nil
	}
	var out []Raw
	add := func(m map[ID]Raw) {
		for id, v := range m {
			if v.ID == "" {
				v.ID = id
			}
			if v.ID == "" || (v.FirstName == "" && v.Name == "") {
				continue
			}
			out = append(out, v.Primary())
		}
	}
	add(raw.Parents)
	add(raw.Children)
	add(raw.Siblings)
	for _, s := range raw.Spouses {
		if s.ID == "" || (s.FirstName == "" && s.Name == "") {
			continue
		}
		out = append(out, s.Raw.Primary())
	}
	return out
}

// orderedIDs sorts a relation map by the nested bag's birth date (unknown
// last) and then id, since map order carries no meaning.
func orderedIDs(m map[ID]Raw) []ID {
	type entry struct {
		id   ID
		born string
	}
	entries := make([]entry, 0, len(m))
	for k, v := range m {
		id := k
		if id == "" {
			id = v.ID
		}
		if id == "" {
			continue
		}
		entries = append(entries, entry{id: id, born: sortKey(v.BirthDate)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].born != entries[j].born {
			return entries[i].born < entries[j].born
		}
		return entries[i].id < entries[j].id
	})
	out := make([]ID, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}
