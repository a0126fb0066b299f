package person

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a profile. The genealogy API sends ids as numbers; other
// sources use strings. Numeric zero means "unknown".
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = normalizeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("person id: %w", err)
	}
	*id = normalizeID(n.String())
	return nil
}

func (id *ID) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*id = normalizeID(s)
	return nil
}

func normalizeID(s string) ID {
	s = strings.TrimSpace(s)
	if s == "0" {
		return ""
	}
	return ID(s)
}

// Flag accepts true/false, 0/1 and "0"/"1".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch strings.ToLower(s) {
	case "", "null", "0", "false", "no":
		*f = false
	default:
		*f = true
	}
	return nil
}

// Int accepts numbers and numeric strings.
type Int int

func (i *Int) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("int field: %w", err)
	}
	*i = Int(n)
	return nil
}

// Raw is the attribute bag returned by a loader. A nil relation collection
// means it was not requested or not returned; an empty one means "known empty".
type Raw struct {
	ID              ID     `json:"Id" yaml:"id"`
	Name            string `json:"Name,omitempty" yaml:"name,omitempty"`
	FirstName       string `json:"FirstName,omitempty" yaml:"first_name,omitempty"`
	MiddleName      string `json:"MiddleName,omitempty" yaml:"middle_name,omitempty"`
	LastNameAtBirth string `json:"LastNameAtBirth,omitempty" yaml:"last_name_at_birth,omitempty"`
	LastNameCurrent string `json:"LastNameCurrent,omitempty" yaml:"last_name_current,omitempty"`
	BirthDate       string `json:"BirthDate,omitempty" yaml:"birth_date,omitempty"`
	DeathDate       string `json:"DeathDate,omitempty" yaml:"death_date,omitempty"`
	BirthLocation   string `json:"BirthLocation,omitempty" yaml:"birth_location,omitempty"`
	DeathLocation   string `json:"DeathLocation,omitempty" yaml:"death_location,omitempty"`
	Gender          string `json:"Gender,omitempty" yaml:"gender,omitempty"`
	Father          ID     `json:"Father,omitempty" yaml:"father,omitempty"`
	Mother          ID     `json:"Mother,omitempty" yaml:"mother,omitempty"`
	Privacy         Int    `json:"Privacy,omitempty" yaml:"privacy,omitempty"`
	IsLiving        Flag   `json:"IsLiving,omitempty" yaml:"is_living,omitempty"`
	NoChildren      Flag   `json:"NoChildren,omitempty" yaml:"no_children,omitempty"`

	DataStatus map[string]string `json:"DataStatus,omitempty" yaml:"data_status,omitempty"`

	Parents  RelativeMap `json:"Parents,omitempty" yaml:"parents,omitempty"`
	Children RelativeMap `json:"Children,omitempty" yaml:"children,omitempty"`
	Siblings RelativeMap `json:"Siblings,omitempty" yaml:"siblings,omitempty"`
	Spouses  []RawSpouse `json:"Spouses,omitempty" yaml:"spouses,omitempty"`
}

// RelativeMap is a nested relation collection keyed by id. A nil map means
// the collection was not sent; an empty one means it was sent and is empty.
type RelativeMap map[ID]Raw

// UnmarshalJSON accepts the object form and the array form. The API sends
// an empty collection as [].
func (m *RelativeMap) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*m = nil
		return nil
	case b[0] == '[':
		var list []Raw
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("person: relatives: %w", err)
		}
		out := make(RelativeMap, len(list))
		for _, r := range list {
			if r.ID != "" {
				out[r.ID] = r
			}
		}
		*m = out
		return nil
	}
	var obj map[ID]Raw
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("person: relatives: %w", err)
	}
	if obj == nil {
		obj = map[ID]Raw{}
	}
	*m = obj
	return nil
}

// RawSpouse is one element of the Spouses array: the spouse's own bag plus
// the marriage fields.
type RawSpouse struct {
	Raw              `yaml:",inline"`
	MarriageDate     string `json:"marriage_date,omitempty" yaml:"marriage_date,omitempty"`
	MarriageEndDate  string `json:"marriage_end_date,omitempty" yaml:"marriage_end_date,omitempty"`
	MarriageLocation string `json:"marriage_location,omitempty" yaml:"marriage_location,omitempty"`
	NotMarried       Flag   `json:"NotMarried,omitempty" yaml:"not_married,omitempty"`
	DoNotDisplay     Flag   `json:"DoNotDisplay,omitempty" yaml:"do_not_display,omitempty"`
}

// Has reports which relation collections are present in the bag.
func (r *Raw) Has() Richness {
	var out Richness
	if r.Siblings != nil {
		out |= Siblings
	}
	if r.Parents != nil {
		out |= Parents
	}
	if r.Spouses != nil {
		out |= Spouses
	}
	if r.Children != nil {
		out |= Children
	}
	return out
}

// Project returns a copy of r keeping only the requested relation
// collections. Nested bags are reduced to primary fields.
func (r Raw) Project(relations Richness) Raw {
	out := r.Primary()
	if relations.Has(Parents) && r.Parents != nil {
		out.Parents = primaryMap(r.Parents)
	}
	if relations.Has(Children) && r.Children != nil {
		out.Children = primaryMap(r.Children)
	}
	if relations.Has(Siblings) && r.Siblings != nil {
		out.Siblings = primaryMap(r.Siblings)
	}
	if relations.Has(Spouses) && r.Spouses != nil {
		out.Spouses = make([]RawSpouse, len(r.Spouses))
		for i, s := range r.Spouses {
			s.Raw = s.Raw.Primary()
			out.Spouses[i] = s
		}
	}
	return out
}

// Primary drops every relation collection.
func (r Raw) Primary() Raw {
	r.Parents, r.Children, r.Siblings, r.Spouses = nil, nil, nil, nil
	return r
}

func primaryMap(in map[ID]Raw) map[ID]Raw {
	out := make(map[ID]Raw, len(in))
	for k, v := range in {
		out[k] = v.Primary()
	}
	return out
}
