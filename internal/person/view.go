package person

// View is a read-only snapshot of a record for JSON output and report views.
type View struct {
	ID                ID              `json:"id"`
	Name              string          `json:"name,omitempty"`
	DisplayName       string          `json:"display_name"`
	FirstName         string          `json:"first_name,omitempty"`
	MiddleName        string          `json:"middle_name,omitempty"`
	LastNameAtBirth   string          `json:"last_name_at_birth,omitempty"`
	LastNameCurrent   string          `json:"last_name_current,omitempty"`
	BirthDate         string          `json:"birth_date"`
	DeathDate         string          `json:"death_date"`
	BirthLocation     string          `json:"birth_location,omitempty"`
	DeathLocation     string          `json:"death_location,omitempty"`
	Gender            string          `json:"gender,omitempty"`
	Privacy           int             `json:"privacy,omitempty"`
	Living            bool            `json:"living"`
	FatherID          ID              `json:"father_id,omitempty"`
	MotherID          ID              `json:"mother_id,omitempty"`
	ParentIDs         []ID            `json:"parent_ids,omitempty"`
	ChildrenIDs       []ID            `json:"children_ids,omitempty"`
	SiblingIDs        []ID            `json:"sibling_ids,omitempty"`
	SpouseIDs         []ID            `json:"spouse_ids,omitempty"`
	Marriages         map[ID]Marriage `json:"marriages,omitempty"`
	PreferredSpouseID ID              `json:"preferred_spouse_id,omitempty"`
	Richness          []string        `json:"richness"`
	FullyEnriched     bool            `json:"fully_enriched"`
	DiedYoung         bool            `json:"died_young,omitempty"`
	BrickWall         bool            `json:"brick_wall,omitempty"`
	Marked            bool            `json:"marked,omitempty"`
	Occurrences       int             `json:"occurrences,omitempty"`
	Placeholder       bool            `json:"placeholder,omitempty"`
}

func (r *Record) View() View {
	v := View{
		ID:                r.id,
		Name:              r.Name,
		DisplayName:       r.DisplayName(),
		FirstName:         r.FirstName,
		MiddleName:        r.MiddleName,
		LastNameAtBirth:   r.LastNameAtBirth,
		LastNameCurrent:   r.LastNameCurrent,
		BirthDate:         r.BirthDate,
		DeathDate:         r.DeathDate,
		BirthLocation:     r.BirthLocation,
		DeathLocation:     r.DeathLocation,
		Gender:            string(r.Gender),
		Privacy:           r.Privacy,
		Living:            r.Living,
		FatherID:          r.FatherID,
		MotherID:          r.MotherID,
		ParentIDs:         r.ParentIDs(),
		ChildrenIDs:       r.ChildrenIDs(),
		SiblingIDs:        r.SiblingIDs(),
		SpouseIDs:         r.SpouseIDs(),
		PreferredSpouseID: r.PreferredSpouseID(),
		Richness:          r.richness.Fields(),
		FullyEnriched:     r.IsFullyEnriched(),
		DiedYoung:         r.IsDiedYoung(),
		BrickWall:         r.IsBrickWall(),
		Marked:            r.IsMarked(),
		Occurrences:       r.Occurrences(),
		Placeholder:       r.placeholder,
	}
	if len(r.marriages) > 0 {
		v.Marriages = make(map[ID]Marriage, len(r.marriages))
		for k, m := range r.marriages {
			v.Marriages[k] = m
		}
	}
	return v
}
