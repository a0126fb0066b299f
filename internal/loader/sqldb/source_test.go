package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

func openTestSource(t *testing.T) *Source {
	t.Helper()
	s, err := Open(config.SQLConfig{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "kin.db"),
		AutoMigrate: true,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	people := []person.Raw{
		{ID: "F", FirstName: "Karl", Gender: "Male", Spouses: []person.RawSpouse{
			{Raw: person.Raw{ID: "M"}, MarriageDate: "1875-06-12"},
			{Raw: person.Raw{ID: "W2"}, MarriageDate: "1890-00-00"},
		}},
		{ID: "M", FirstName: "Anna", Gender: "Female", Spouses: []person.RawSpouse{
			{Raw: person.Raw{ID: "F"}, MarriageDate: "1875-06-12"},
		}},
		{ID: "W2", FirstName: "Eva", Gender: "Female", DataStatus: map[string]string{"Spouse": "blank"}},
		{ID: "C1", FirstName: "Erik", Father: "F", Mother: "M", BirthDate: "1877-03-03"},
		{ID: "C2", FirstName: "Maja", Father: "F", Mother: "M", BirthDate: "1880-08-08"},
		{ID: "C3", FirstName: "Olof", Father: "F", Mother: "W2", BirthDate: "1892-01-01"},
	}
	if err := s.Seed(context.Background(), people); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return s
}

func TestGetLoadsRequestedRelations(t *testing.T) {
	s := openTestSource(t)
	ctx := context.Background()

	raw, err := s.Get(ctx, "F", person.Children|person.Spouses)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw.Has() != person.Children|person.Spouses {
		t.Fatalf("has=%v", raw.Has())
	}
	if len(raw.Children) != 3 {
		t.Fatalf("children=%v", raw.Children)
	}
	if len(raw.Spouses) != 2 || raw.Spouses[0].ID != "M" || raw.Spouses[0].FirstName != "Anna" {
		t.Fatalf("spouses=%+v", raw.Spouses)
	}

	c1, err := s.Get(ctx, "C1", person.Parents|person.Siblings)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c1.Parents) != 2 || len(c1.Siblings) != 2 {
		t.Fatalf("parents=%v siblings=%v", c1.Parents, c1.Siblings)
	}
	if c1.Father != "F" || c1.Mother != "M" {
		t.Fatalf("father=%s mother=%s", c1.Father, c1.Mother)
	}

	w2, err := s.Get(ctx, "W2", person.None)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if w2.DataStatus["Spouse"] != "blank" || w2.Has() != person.None {
		t.Fatalf("w2=%+v", w2)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestSource(t)
	if _, err := s.Get(context.Background(), "nobody", person.Full); !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.SQLConfig{Driver: "oracle", DSN: "x"}, logger.Nop()); err == nil {
		t.Fatalf("expected error")
	}
}
