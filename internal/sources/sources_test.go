package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

func TestNewFixtureSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")
	body := `{"people":[{"Id":"A","FirstName":"Ann"},{"Id":"B","FirstName":"Bo","Mother":"A"}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := New(context.Background(), config.SourceConfig{Type: "fixture", FixturePath: path}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close(context.Background())
	if src.Seeder != nil {
		t.Fatalf("fixture source should be read-only")
	}
	raw, err := src.Loader.Get(context.Background(), "A", person.Children)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := raw.Children["B"]; !ok {
		t.Fatalf("children=%v", raw.Children)
	}
}

func TestNewSQLSourceIsSeedable(t *testing.T) {
	src, err := New(context.Background(), config.SourceConfig{
		Type: "sql",
		SQL:  config.SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "kin.db"), AutoMigrate: true},
	}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close(context.Background())
	if src.Seeder == nil {
		t.Fatalf("sql source should be seedable")
	}
	if err := src.Seeder.Seed(context.Background(), []person.Raw{{ID: "A", FirstName: "Ann"}}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	raw, err := src.Loader.Get(context.Background(), "A", person.None)
	if err != nil || raw.FirstName != "Ann" {
		t.Fatalf("raw=%+v err=%v", raw, err)
	}
}

func TestNewDefaultsToWikiTree(t *testing.T) {
	src, err := New(context.Background(), config.SourceConfig{BaseURL: "https://api.example.test/api.php"}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if src.Name != "wikitree" {
		t.Fatalf("name=%s", src.Name)
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	if _, err := New(context.Background(), config.SourceConfig{Type: "gedcom"}, logger.Nop()); err == nil {
		t.Fatalf("expected error")
	}
}
