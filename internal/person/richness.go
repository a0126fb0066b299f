package person

import "strings"

// Richness records which relation collections of a record are populated.
type Richness uint8

const (
	Siblings Richness = 1 << iota
	Parents
	Spouses
	Children
)

const (
	None Richness = 0
	// Full is the default requirement for a tree view.
	Full = Parents | Spouses | Children
	All  = Siblings | Full
)

var relationNames = map[Richness]string{
	Siblings: "Siblings",
	Parents:  "Parents",
	Spouses:  "Spouses",
	Children: "Children",
}

func (r Richness) Has(bits Richness) bool { return r&bits == bits }

// Covers reports whether r includes every collection in other.
func (r Richness) Covers(other Richness) bool { return r&other == other }

// Fields lists the API field names for the set bits.
func (r Richness) Fields() []string {
	out := make([]string, 0, 4)
	for _, bit := range []Richness{Parents, Children, Spouses, Siblings} {
		if r.Has(bit) {
			out = append(out, relationNames[bit])
		}
	}
	return out
}

func (r Richness) String() string {
	if r == None {
		return "none"
	}
	return strings.Join(r.Fields(), "|")
}

// ParseRichness reads a comma separated relation list such as
// "parents,children". Unknown names are ignored; "full" and "all" expand.
func ParseRichness(s string) Richness {
	var out Richness
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "siblings":
			out |= Siblings
		case "parents":
			out |= Parents
		case "spouses":
			out |= Spouses
		case "children":
			out |= Children
		case "full":
			out |= Full
		case "all":
			out |= All
		}
	}
	return out
}
