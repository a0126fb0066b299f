package store

import (
	"context"
	"testing"

	"github.com/yungbote/kinview-backend/internal/loader/fixture"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

// Cousins C and D married; their child K has the shared grandparents G1/G2
// on both sides.
func pedigreeFixture(t *testing.T) *fixture.Source {
	t.Helper()
	src, err := fixture.New([]person.Raw{
		{ID: "G1", FirstName: "Gustav", Gender: "Male", Spouses: []person.RawSpouse{{Raw: person.Raw{ID: "G2"}}}},
		{ID: "G2", FirstName: "Greta", Gender: "Female"},
		{ID: "A", FirstName: "Arvid", Gender: "Male", Father: "G1", Mother: "G2"},
		{ID: "B", FirstName: "Berit", Gender: "Female", Father: "G1", Mother: "G2"},
		{ID: "AW", FirstName: "Alma", Gender: "Female", Spouses: []person.RawSpouse{{Raw: person.Raw{ID: "A"}}}},
		{ID: "BH", FirstName: "Bengt", Gender: "Male", Spouses: []person.RawSpouse{{Raw: person.Raw{ID: "B"}}}},
		{ID: "C", FirstName: "Cecil", Gender: "Male", Father: "A", Mother: "AW"},
		{ID: "D", FirstName: "Disa", Gender: "Female", Father: "BH", Mother: "B", Spouses: []person.RawSpouse{{Raw: person.Raw{ID: "C"}}}},
		{ID: "K", FirstName: "Kim", Father: "C", Mother: "D"},
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return src
}

func TestLoadAncestorsFetchesSharedAncestorOnce(t *testing.T) {
	src := pedigreeFixture(t)
	s := New(src, logger.Nop(), Options{Concurrency: 4})

	if err := s.LoadAncestors(context.Background(), "K", 3); err != nil {
		t.Fatalf("LoadAncestors: %v", err)
	}
	for _, id := range []person.ID{"K", "C", "D", "A", "AW", "B", "BH", "G1", "G2"} {
		rec, ok := s.GetIfPresent(id)
		if !ok || !rec.IsFullyEnriched() {
			t.Fatalf("%s not fully loaded", id)
		}
	}
	if n := src.CallsFor("G1"); n != 1 {
		t.Fatalf("G1 fetched %d times", n)
	}
}

func TestLoadAncestorsStopsAtBrickWall(t *testing.T) {
	src := pedigreeFixture(t)
	s := New(src, logger.Nop(), Options{})
	ctx := context.Background()

	c, err := s.GetWithLoad(ctx, "C", person.Full)
	if err != nil {
		t.Fatal(err)
	}
	c.SetBrickWall(true)
	if err := s.LoadAncestors(ctx, "C", 2); err != nil {
		t.Fatal(err)
	}
	if src.CallsFor("A") != 0 || src.CallsFor("G1") != 0 {
		t.Fatalf("walked past brick wall")
	}
}

func TestLoadFamily(t *testing.T) {
	src := pedigreeFixture(t)
	s := New(src, logger.Nop(), Options{})

	rec, err := s.LoadFamily(context.Background(), "G1")
	if err != nil {
		t.Fatalf("LoadFamily: %v", err)
	}
	if rec.PreferredSpouseID() != "G2" {
		t.Fatalf("preferred=%s", rec.PreferredSpouseID())
	}
	g2, _ := s.GetIfPresent("G2")
	if !g2.IsFullyEnriched() {
		t.Fatalf("spouse richness=%v", g2.Richness())
	}
	for _, id := range []person.ID{"A", "B"} {
		child, _ := s.GetIfPresent(id)
		if !child.Has(person.Spouses | person.Children) {
			t.Fatalf("child %s richness=%v", id, child.Richness())
		}
	}
}

func TestLoadDescendantsSkipsCollapsed(t *testing.T) {
	src := pedigreeFixture(t)
	s := New(src, logger.Nop(), Options{})
	ctx := context.Background()

	g1, err := s.GetWithLoad(ctx, "G1", person.Full)
	if err != nil {
		t.Fatal(err)
	}
	g1.CollapseChildren("B")
	if err := s.LoadDescendants(ctx, "G1", 2); err != nil {
		t.Fatalf("LoadDescendants: %v", err)
	}
	if c, ok := s.GetIfPresent("C"); !ok || !c.IsFullyEnriched() {
		t.Fatalf("C not loaded")
	}
	if src.CallsFor("B") != 0 || src.CallsFor("BH") != 0 {
		t.Fatalf("collapsed branch was loaded")
	}
}

func TestLoadAncestorsUnknownRoot(t *testing.T) {
	src := pedigreeFixture(t)
	s := New(src, logger.Nop(), Options{})
	if err := s.LoadAncestors(context.Background(), "nobody", 2); err == nil {
		t.Fatalf("expected error")
	}
}
