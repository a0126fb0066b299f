package person

import (
	"encoding/json"
	"reflect"
	"testing"
)

type mapLookup map[ID]*Record

func (m mapLookup) GetIfPresent(id ID) (*Record, bool) {
	r, ok := m[id]
	return r, ok
}

func mustRecord(t *testing.T, raw Raw) *Record {
	t.Helper()
	r, err := FromRaw(&raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	return r
}

func TestFromRawChildrenAndSpouse(t *testing.T) {
	r := mustRecord(t, Raw{
		ID:       "P1",
		Children: map[ID]Raw{"C1": {}, "C2": {}},
		Spouses:  []RawSpouse{{Raw: Raw{ID: "S1"}, MarriageDate: "1900-01-01"}},
	})

	if r.Has(Parents) {
		t.Fatalf("richness should exclude Parents: %v", r.Richness())
	}
	if r.IsFullyEnriched() {
		t.Fatalf("IsFullyEnriched should be false")
	}
	if got := r.PreferredSpouseID(); got != "S1" {
		t.Fatalf("preferred=%q", got)
	}
	if got := r.ChildrenIDs(); !reflect.DeepEqual(got, []ID{"C1", "C2"}) {
		t.Fatalf("children=%v", got)
	}
	if r.Richness() != Children|Spouses {
		t.Fatalf("richness=%v", r.Richness())
	}
}

func TestFromRawMissingID(t *testing.T) {
	if _, err := FromRaw(&Raw{FirstName: "Ann"}); err != ErrMissingID {
		t.Fatalf("err=%v", err)
	}
	if _, err := FromRaw(nil); err != ErrMissingID {
		t.Fatalf("nil err=%v", err)
	}
}

func TestRichnessCountsEmptyCollections(t *testing.T) {
	r := mustRecord(t, Raw{ID: "P1", Children: map[ID]Raw{}, Spouses: []RawSpouse{}, Parents: map[ID]Raw{}})
	if !r.IsFullyEnriched() {
		t.Fatalf("empty but present collections must count: %v", r.Richness())
	}
	if !r.HasNoSpouse() || r.HasAnySpouse() {
		t.Fatalf("expected loaded-and-empty spouses")
	}
	if r.DefinitelyHasNoSpouse() {
		t.Fatalf("no DataStatus flag, should not be definite")
	}

	unknown := mustRecord(t, Raw{ID: "P2"})
	if unknown.HasNoSpouse() {
		t.Fatalf("spouses not loaded must not read as no spouse")
	}
}

func TestDefinitelyHasNoSpouse(t *testing.T) {
	r := mustRecord(t, Raw{ID: "P1", Spouses: []RawSpouse{}, DataStatus: map[string]string{"Spouse": "blank"}})
	if !r.DefinitelyHasNoSpouse() {
		t.Fatalf("expected definite no spouse")
	}
}

func TestPreferredSpouseOrdering(t *testing.T) {
	cases := []struct {
		name    string
		spouses []RawSpouse
		want    ID
	}{
		{
			name: "earliest known wins",
			spouses: []RawSpouse{
				{Raw: Raw{ID: "S1"}, MarriageDate: "1920-05-01"},
				{Raw: Raw{ID: "S2"}, MarriageDate: "1910-00-00"},
			},
			want: "S2",
		},
		{
			name: "unknown sorts last",
			spouses: []RawSpouse{
				{Raw: Raw{ID: "S1"}},
				{Raw: Raw{ID: "S2"}, MarriageDate: "1950-01-01"},
			},
			want: "S2",
		},
		{
			name: "ties keep source order",
			spouses: []RawSpouse{
				{Raw: Raw{ID: "S1"}, MarriageDate: UnknownDate},
				{Raw: Raw{ID: "S2"}, MarriageDate: UnknownDate},
			},
			want: "S1",
		},
		{
			name: "hidden loses to displayable",
			spouses: []RawSpouse{
				{Raw: Raw{ID: "S1"}, MarriageDate: "1900-01-01", DoNotDisplay: true},
				{Raw: Raw{ID: "S2"}, MarriageDate: "1930-01-01"},
			},
			want: "S2",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := mustRecord(t, Raw{ID: "P", Spouses: tc.spouses})
			if got := r.PreferredSpouseID(); got != tc.want {
				t.Fatalf("preferred=%q want=%q", got, tc.want)
			}
			for _, s := range tc.spouses {
				if _, ok := r.Marriage(s.ID); !ok {
					t.Fatalf("marriage metadata missing for %s", s.ID)
				}
			}
			if len(r.SpouseIDs()) != len(tc.spouses) {
				t.Fatalf("spouse ids out of sync")
			}
		})
	}
}

func TestMarriageDefaultsUnknownDate(t *testing.T) {
	r := mustRecord(t, Raw{ID: "P", Spouses: []RawSpouse{{Raw: Raw{ID: "S1"}}}})
	m, _ := r.Marriage("S1")
	if m.Date != UnknownDate || m.EndDate != UnknownDate {
		t.Fatalf("marriage=%+v", m)
	}
}

func TestIsDiedYoung(t *testing.T) {
	cases := []struct {
		birth, death string
		want         bool
	}{
		{"1900-01-01", "1905-03-02", true},
		{"1900-01-01", "1910-00-00", true},
		{"1900-01-01", "1911-01-01", false},
		{"1900-01-01", UnknownDate, false},
		{"", "1901-01-01", false},
		{"1910-01-01", "1900-01-01", false},
	}
	for _, tc := range cases {
		r := mustRecord(t, Raw{ID: "P", BirthDate: tc.birth, DeathDate: tc.death})
		if got := r.IsDiedYoung(); got != tc.want {
			t.Fatalf("birth=%s death=%s got=%v", tc.birth, tc.death, got)
		}
		if got := r.IsDiedYoung(); got != tc.want {
			t.Fatalf("memoized value changed")
		}
	}
}

func TestSetPreferredSpouse(t *testing.T) {
	husband := mustRecord(t, Raw{ID: "H", Spouses: []RawSpouse{
		{Raw: Raw{ID: "W1"}, MarriageDate: "1900-01-01"},
		{Raw: Raw{ID: "W2"}, MarriageDate: "1910-01-01"},
	}})
	w2 := mustRecord(t, Raw{ID: "W2", Spouses: []RawSpouse{
		{Raw: Raw{ID: "X"}, MarriageDate: "1890-01-01"},
		{Raw: Raw{ID: "H"}, MarriageDate: "1910-01-01"},
	}})
	x := mustRecord(t, Raw{ID: "X", Spouses: []RawSpouse{{Raw: Raw{ID: "W2"}}, {Raw: Raw{ID: "Y"}, MarriageDate: "1880-01-01"}}})
	lookup := mapLookup{"H": husband, "W2": w2, "X": x}

	if husband.SetPreferredSpouse("NOPE", lookup) {
		t.Fatalf("non-spouse accepted")
	}
	if got := husband.PreferredSpouseID(); got != "W1" {
		t.Fatalf("state changed on failure: %q", got)
	}

	if !husband.SetPreferredSpouse("W2", lookup) {
		t.Fatalf("SetPreferredSpouse failed")
	}
	if got := husband.PreferredSpouseID(); got != "W2" {
		t.Fatalf("preferred=%q", got)
	}
	if got := w2.PreferredSpouseID(); got != "H" {
		t.Fatalf("back-reference not set: %q", got)
	}
	if got := x.PreferredSpouseID(); got != "Y" {
		t.Fatalf("propagation went past the partner: %q", got)
	}
}

func TestGenerationsAndCollapsedState(t *testing.T) {
	r := mustRecord(t, Raw{ID: "P"})
	r.AddGeneration(2)
	r.AddGeneration(2)
	r.AddGeneration(3)
	if r.Occurrences() != 3 {
		t.Fatalf("occurrences=%d", r.Occurrences())
	}
	if got := r.Generations(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("generations=%v", got)
	}
	r.ResetGenerations()
	if r.Occurrences() != 0 {
		t.Fatalf("reset failed")
	}

	if n := r.CollapseChildren("C1", "C2", "C1"); n != 2 {
		t.Fatalf("collapsed=%d", n)
	}
	if n := r.ExpandChildren("C1", "C9"); n != 1 {
		t.Fatalf("expanded=%d", n)
	}
	if got := r.CollapsedChildren(); !reflect.DeepEqual(got, []ID{"C2"}) {
		t.Fatalf("collapsed=%v", got)
	}
}

func TestMergeUnionsRelationsAndKeepsViewState(t *testing.T) {
	older := mustRecord(t, Raw{ID: "P", Parents: map[ID]Raw{"F": {}}})
	older.CollapseChildren("C1")
	older.SetBrickWall(true)
	newer := mustRecord(t, Raw{ID: "P", FirstName: "Ann", Children: map[ID]Raw{"C1": {}}})

	m := Merge(newer, older)
	if m.Richness() != Parents|Children {
		t.Fatalf("richness=%v", m.Richness())
	}
	if !reflect.DeepEqual(m.ParentIDs(), []ID{"F"}) || !reflect.DeepEqual(m.ChildrenIDs(), []ID{"C1"}) {
		t.Fatalf("relations lost: parents=%v children=%v", m.ParentIDs(), m.ChildrenIDs())
	}
	if m.FirstName != "Ann" {
		t.Fatalf("scalars should come from newer")
	}
	if !m.IsBrickWall() || !reflect.DeepEqual(m.CollapsedChildren(), []ID{"C1"}) {
		t.Fatalf("view state not carried")
	}
}

func TestReplaceKeepsValidPreferredSpouse(t *testing.T) {
	prev := mustRecord(t, Raw{ID: "P", Spouses: []RawSpouse{
		{Raw: Raw{ID: "S1"}, MarriageDate: "1900-01-01"},
		{Raw: Raw{ID: "S2"}, MarriageDate: "1905-01-01"},
	}})
	prev.SetPreferredSpouse("S2", nil)
	next := mustRecord(t, Raw{ID: "P", Parents: map[ID]Raw{}, Children: map[ID]Raw{}, Spouses: []RawSpouse{
		{Raw: Raw{ID: "S1"}, MarriageDate: "1900-01-01"},
		{Raw: Raw{ID: "S2"}, MarriageDate: "1905-01-01"},
	}})
	Replace(prev, next)
	if got := next.PreferredSpouseID(); got != "S2" {
		t.Fatalf("preferred=%q", got)
	}
}

func TestRawJSONDecoding(t *testing.T) {
	body := `{
		"Id": 123, "Name": "Smith-1", "FirstName": "John", "Gender": "Male",
		"Father": 0, "Mother": "77", "Privacy": "60", "IsLiving": "0", "NoChildren": 1,
		"Children": {"9": {"Id": 9, "FirstName": "Kid", "BirthDate": "1930-00-00"}, "8": {"Id": 8, "BirthDate": "1925-02-02"}},
		"Spouses": [{"Id": 55, "FirstName": "Jane", "marriage_date": "1920-06-01", "NotMarried": "0"}]
	}`
	var raw Raw
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r := mustRecord(t, raw)
	if r.ID() != "123" || r.FatherID != "" || r.MotherID != "77" {
		t.Fatalf("ids: id=%q father=%q mother=%q", r.ID(), r.FatherID, r.MotherID)
	}
	if r.Privacy != 60 || r.Living || !r.NoChildren || r.ChildrenSuspected() {
		t.Fatalf("scalars: %+v", r.View())
	}
	if got := r.ChildrenIDs(); !reflect.DeepEqual(got, []ID{"8", "9"}) {
		t.Fatalf("children should be ordered by birth: %v", got)
	}
	if r.PreferredSpouseID() != "55" {
		t.Fatalf("preferred=%q", r.PreferredSpouseID())
	}
	rel := Relatives(&raw)
	if len(rel) != 2 {
		t.Fatalf("relatives=%d", len(rel))
	}
}

func TestRelativeMapDecoding(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    []ID
		present bool
	}{
		{name: "object", body: `{"Children":{"7":{"Id":7}}}`, want: []ID{"7"}, present: true},
		{name: "empty array", body: `{"Children":[]}`, present: true},
		{name: "array of bags", body: `{"Children":[{"Id":4},{"Id":"5"}]}`, want: []ID{"4", "5"}, present: true},
		{name: "null", body: `{"Children":null}`},
		{name: "absent", body: `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var raw Raw
			if err := json.Unmarshal([]byte(tc.body), &raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := raw.Has().Has(Children); got != tc.present {
				t.Fatalf("children present=%v want %v", got, tc.present)
			}
			if len(raw.Children) != len(tc.want) {
				t.Fatalf("children=%v want %v", raw.Children, tc.want)
			}
			for _, id := range tc.want {
				if _, ok := raw.Children[id]; !ok {
					t.Fatalf("missing %q in %v", id, raw.Children)
				}
			}
		})
	}
}

func TestProjectKeepsRequestedRelations(t *testing.T) {
	raw := Raw{
		ID:       "P",
		Parents:  map[ID]Raw{"F": {ID: "F", Children: map[ID]Raw{"P": {}}}},
		Children: map[ID]Raw{"C": {ID: "C"}},
		Spouses:  []RawSpouse{{Raw: Raw{ID: "S"}}},
	}
	p := raw.Project(Parents | Siblings)
	if p.Has() != Parents {
		t.Fatalf("projected richness=%v", p.Has())
	}
	if p.Parents["F"].Children != nil {
		t.Fatalf("nested bags must be primary only")
	}
}

func TestParseRichness(t *testing.T) {
	if got := ParseRichness("parents, Children"); got != Parents|Children {
		t.Fatalf("got=%v", got)
	}
	if got := ParseRichness("full"); got != Full {
		t.Fatalf("got=%v", got)
	}
	if got := ParseRichness(""); got != None {
		t.Fatalf("got=%v", got)
	}
}

func TestRefVariants(t *testing.T) {
	r := mustRecord(t, Raw{ID: "P"})
	if ref := Loaded(r); !ref.IsLoaded() || ref.ID() != "P" {
		t.Fatalf("loaded ref=%+v", ref)
	}
	nl := NotLoaded("Q")
	if !nl.Present() || nl.IsLoaded() || !nl.Record.IsPlaceholder() || nl.Record.DisplayName() != "?" {
		t.Fatalf("not loaded ref=%+v", nl)
	}
	if NoSpouse().Present() || NoSpouse().Key() != "none" {
		t.Fatalf("no spouse ref")
	}
	if (Ref{}).Present() {
		t.Fatalf("unset ref present")
	}
}
