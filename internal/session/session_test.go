package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/couple"
	"github.com/yungbote/kinview-backend/internal/events"
	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/loader/fixture"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

func testFixture(t *testing.T) *fixture.Source {
	t.Helper()
	src, err := fixture.New([]person.Raw{
		{ID: "GF", FirstName: "Gunnar", Gender: "Male", Spouses: []person.RawSpouse{{Raw: person.Raw{ID: "GM"}, MarriageDate: "1890-01-01"}}},
		{ID: "GM", FirstName: "Gerda", Gender: "Female"},
		{ID: "H", FirstName: "Hans", Gender: "Male", Father: "GF", Mother: "GM", Spouses: []person.RawSpouse{
			{Raw: person.Raw{ID: "W"}, MarriageDate: "1920-01-01"},
			{Raw: person.Raw{ID: "W2"}, MarriageDate: "1930-01-01"},
		}},
		{ID: "W", FirstName: "Wilma", Gender: "Female"},
		{ID: "W2", FirstName: "Vera", Gender: "Female"},
		{ID: "C1", FirstName: "Carl", Father: "H", Mother: "W", BirthDate: "1921-01-01"},
		{ID: "C2", FirstName: "Cia", Father: "H", Mother: "W", BirthDate: "1923-01-01"},
		{ID: "C3", FirstName: "Cole", Father: "H", Mother: "W2", BirthDate: "1931-01-01"},
		{ID: "X", FirstName: "Xena", Gender: "Female"},
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return src
}

func testRegistry(t *testing.T, l loader.Loader, bus events.Bus) *Registry {
	t.Helper()
	return NewRegistry(l, bus,
		config.SessionConfig{IdleTTL: config.Duration{Duration: time.Minute}, MaxSessions: 2, LoadConcurrency: 4},
		config.TreeConfig{DefaultGenerations: 3, MaxGenerations: 5},
		logger.Nop(),
	)
}

func TestCreateLoadsSubjectFamily(t *testing.T) {
	src := testFixture(t)
	reg := testRegistry(t, src, nil)

	s, rec, err := reg.Create(context.Background(), "H")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" || s.Subject() != "H" || !rec.IsFullyEnriched() {
		t.Fatalf("session=%s subject=%s richness=%v", s.ID, s.Subject(), rec.Richness())
	}
	for _, id := range []person.ID{"W", "W2"} {
		if sp, ok := s.Store().GetIfPresent(id); !ok || !sp.IsFullyEnriched() {
			t.Fatalf("spouse %s not loaded", id)
		}
	}
	got, err := reg.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get: %v", err)
	}
}

func TestCreateUnknownSubjectIsNotRegistered(t *testing.T) {
	reg := testRegistry(t, testFixture(t), nil)
	if _, _, err := reg.Create(context.Background(), "nobody"); !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("len=%d", reg.Len())
	}
	if _, _, err := reg.Create(context.Background(), ""); !errors.Is(err, ErrNoSubject) {
		t.Fatalf("err=%v", err)
	}
}

func TestMaxSessions(t *testing.T) {
	reg := testRegistry(t, testFixture(t), nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, _, err := reg.Create(ctx, "H"); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := reg.Create(ctx, "H"); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("err=%v", err)
	}
}

func TestSessionsHaveSeparateCaches(t *testing.T) {
	src := testFixture(t)
	reg := testRegistry(t, src, nil)
	ctx := context.Background()
	a, _, _ := reg.Create(ctx, "H")
	b, _, _ := reg.Create(ctx, "X")
	if _, ok := b.Store().GetIfPresent("H"); ok {
		t.Fatalf("session caches are shared")
	}
	if _, ok := a.Store().GetIfPresent("X"); ok {
		t.Fatalf("session caches are shared")
	}
}

func TestAncestorTree(t *testing.T) {
	reg := testRegistry(t, testFixture(t), nil)
	s, _, _ := reg.Create(context.Background(), "C1")

	root, err := s.AncestorTree(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("AncestorTree: %v", err)
	}
	if root.ID != "a-C1-none" || len(root.Children) != 1 {
		t.Fatalf("root=%+v", root)
	}
	parents := root.Children[0]
	if parents.A.Person.ID != "H" || parents.B.Person.ID != "W" {
		t.Fatalf("parents=%s", parents.ID)
	}
	if len(parents.Children) != 1 || parents.Children[0].A.Person.ID != "GF" {
		t.Fatalf("grandparents=%+v", parents.Children)
	}
}

func TestCollapseAndUncollapse(t *testing.T) {
	reg := testRegistry(t, testFixture(t), nil)
	ctx := context.Background()
	s, _, _ := reg.Create(ctx, "H")

	st, err := s.Collapse(ctx, "", "H", "W", "C1")
	if err != nil {
		t.Fatalf("Collapse: %v", err)
	}
	if !st.Changed || st.ID != "d-H-W-c1" || len(st.JointChildren) != 1 || st.JointChildren[0] != "C2" {
		t.Fatalf("state=%+v", st)
	}

	tr, err := s.DescendantTree(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if tr.ID != st.ID || len(tr.Children) != 1 {
		t.Fatalf("tree=%s state=%s children=%d", tr.ID, st.ID, len(tr.Children))
	}

	st, err = s.Uncollapse(ctx, tr.Prefix, "H", "W", "")
	if err != nil {
		t.Fatal(err)
	}
	if !st.Changed || st.ID != "d-H-W" || len(st.CollapsedChildren) != 0 {
		t.Fatalf("state=%+v", st)
	}
	tr, err = s.DescendantTree(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if tr.ID != st.ID {
		t.Fatalf("tree=%s state=%s", tr.ID, st.ID)
	}
}

func TestChangePartner(t *testing.T) {
	reg := testRegistry(t, testFixture(t), nil)
	ctx := context.Background()
	s, _, _ := reg.Create(ctx, "H")

	if err := s.ChangePartner(ctx, "H", "X"); !errors.Is(err, couple.ErrPartnerInconsistency) {
		t.Fatalf("err=%v", err)
	}
	if err := s.ChangePartner(ctx, "H", "W2"); err != nil {
		t.Fatalf("ChangePartner: %v", err)
	}
	tr, err := s.DescendantTree(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if tr.ID != "d-H-W2" || len(tr.JointChildren) != 1 || tr.JointChildren[0] != "C3" {
		t.Fatalf("tree=%s joint=%v", tr.ID, tr.JointChildren)
	}
}

func TestToggleBrickWall(t *testing.T) {
	reg := testRegistry(t, testFixture(t), nil)
	ctx := context.Background()
	s, _, _ := reg.Create(ctx, "C1")

	on, err := s.ToggleBrickWall(ctx, "H")
	if err != nil || !on {
		t.Fatalf("on=%v err=%v", on, err)
	}
	root, err := s.AncestorTree(ctx, "", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Children[0].Children) != 0 {
		t.Fatalf("tree walked past brick wall")
	}
	off, _ := s.ToggleBrickWall(ctx, "H")
	if off {
		t.Fatalf("toggle did not clear")
	}
}

func TestSwitchSubjectClearsCache(t *testing.T) {
	bus := events.NewMemoryBus(logger.Nop())
	defer bus.Close()
	reg := testRegistry(t, testFixture(t), bus)
	ctx := context.Background()
	s, _, _ := reg.Create(ctx, "H")

	ch, cancel, err := bus.Subscribe(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if _, err := s.SwitchSubject(ctx, "X"); err != nil {
		t.Fatalf("SwitchSubject: %v", err)
	}
	if _, ok := s.Store().GetIfPresent("H"); ok {
		t.Fatalf("old subject still cached")
	}
	if s.Subject() != "X" {
		t.Fatalf("subject=%s", s.Subject())
	}

	var sawUpdate, sawSwitch bool
	deadline := time.After(time.Second)
	for !(sawUpdate && sawSwitch) {
		select {
		case e := <-ch:
			sawUpdate = sawUpdate || (e.Type == events.PersonUpdated && e.PersonID == "X")
			sawSwitch = sawSwitch || e.Type == events.SubjectChanged
		case <-deadline:
			t.Fatalf("update=%v switch=%v", sawUpdate, sawSwitch)
		}
	}
}

func TestSweepAndClose(t *testing.T) {
	reg := testRegistry(t, testFixture(t), nil)
	ctx := context.Background()
	s, _, _ := reg.Create(ctx, "H")

	if n := reg.Sweep(); n != 0 {
		t.Fatalf("swept fresh session")
	}
	reg.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if n := reg.Sweep(); n != 1 {
		t.Fatalf("swept=%d", n)
	}
	if _, err := reg.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if err := reg.Close(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestGenerationsClamp(t *testing.T) {
	s := &Session{tree: config.TreeConfig{DefaultGenerations: 3, MaxGenerations: 5}}
	for in, want := range map[int]int{0: 3, -1: 3, 2: 2, 9: 5} {
		if got := s.generations(in); got != want {
			t.Fatalf("generations(%d)=%d want %d", in, got, want)
		}
	}
}
