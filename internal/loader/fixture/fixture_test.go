package fixture

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
)

func TestLoadYAMLDerivesRelations(t *testing.T) {
	src, err := Load("testdata/family.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := src.IDs(); len(got) != 4 {
		t.Fatalf("ids=%v", got)
	}

	raw, err := src.Get(context.Background(), "M1", person.All)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw.Has() != person.All {
		t.Fatalf("has=%v", raw.Has())
	}
	if len(raw.Children) != 2 || raw.Children["C1"].FirstName != "Erik" {
		t.Fatalf("children=%+v", raw.Children)
	}
	if len(raw.Spouses) != 1 || raw.Spouses[0].ID != "F1" || raw.Spouses[0].MarriageDate != "1875-06-12" {
		t.Fatalf("spouses=%+v", raw.Spouses)
	}
	if len(raw.Parents) != 0 {
		t.Fatalf("parents=%+v", raw.Parents)
	}

	c1, err := src.Get(context.Background(), "C1", person.Siblings|person.Parents)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := c1.Siblings["C2"]; !ok || len(c1.Siblings) != 1 {
		t.Fatalf("siblings=%+v", c1.Siblings)
	}
	if len(c1.Parents) != 2 || c1.Children != nil || c1.Spouses != nil {
		t.Fatalf("projection leaked: %+v", c1)
	}
}

func TestGetCountsCalls(t *testing.T) {
	src, err := New([]person.Raw{{ID: "A", FirstName: "A"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	_, _ = src.Get(ctx, "A", person.None)
	_, _ = src.Get(ctx, "A", person.Full)
	if _, err := src.Get(ctx, "missing", person.None); !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if src.Calls() != 3 || src.CallsFor("A") != 2 || src.CallsFor("missing") != 1 {
		t.Fatalf("calls=%d a=%d", src.Calls(), src.CallsFor("A"))
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	if _, err := New([]person.Raw{{ID: "A"}, {ID: "A"}}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := New([]person.Raw{{FirstName: "nobody"}}); !errors.Is(err, person.ErrMissingID) {
		t.Fatalf("err=%v", err)
	}
}

func TestGetHonoursCancellation(t *testing.T) {
	src, _ := New([]person.Raw{{ID: "A"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Get(ctx, "A", person.None); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if src.Calls() != 0 {
		t.Fatalf("cancelled call counted")
	}
}
