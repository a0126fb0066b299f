package sqldb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

// Source reads people from a relational table pair.
type Source struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ loader.Loader = (*Source)(nil)

func Open(cfg config.SQLConfig, log *logger.Logger) (*Source, error) {
	if log == nil {
		return nil, fmt.Errorf("sqldb: logger required")
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqldb: dsn required")
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqldb: open: %w", err)
	}
	s := &Source{db: db, log: log.With("client", "SQLSource")}
	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// New wraps an existing handle.
func New(db *gorm.DB, log *logger.Logger) *Source {
	return &Source{db: db, log: log.With("client", "SQLSource")}
}

func (s *Source) Migrate() error {
	if err := s.db.AutoMigrate(&PersonRow{}, &MarriageRow{}); err != nil {
		return fmt.Errorf("sqldb: migrate: %w", err)
	}
	return nil
}

func (s *Source) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Source) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Source) Get(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error) {
	db := s.db.WithContext(ctx)

	var row PersonRow
	if err := db.First(&row, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sqldb: %s: %w", id, loader.ErrNotFound)
		}
		return nil, fmt.Errorf("sqldb: load %s: %w", id, err)
	}
	raw := row.raw()

	if relations.Has(person.Parents) {
		ids := []string{}
		for _, p := range []string{row.FatherID, row.MotherID} {
			if p != "" {
				ids = append(ids, p)
			}
		}
		var rows []PersonRow
		if len(ids) > 0 {
			if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
				return nil, fmt.Errorf("sqldb: parents of %s: %w", id, err)
			}
		}
		raw.Parents = bags(rows)
	}
	if relations.Has(person.Children) {
		var rows []PersonRow
		if err := db.Where("father_id = ? OR mother_id = ?", row.ID, row.ID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("sqldb: children of %s: %w", id, err)
		}
		raw.Children = bags(rows)
	}
	if relations.Has(person.Siblings) {
		var rows []PersonRow
		q := db.Where("id <> ?", row.ID)
		switch {
		case row.FatherID != "" && row.MotherID != "":
			q = q.Where("father_id = ? OR mother_id = ?", row.FatherID, row.MotherID)
		case row.FatherID != "":
			q = q.Where("father_id = ?", row.FatherID)
		case row.MotherID != "":
			q = q.Where("mother_id = ?", row.MotherID)
		default:
			q = nil
		}
		if q != nil {
			if err := q.Find(&rows).Error; err != nil {
				return nil, fmt.Errorf("sqldb: siblings of %s: %w", id, err)
			}
		}
		raw.Siblings = bags(rows)
	}
	if relations.Has(person.Spouses) {
		spouses, err := s.spouses(db, row.ID)
		if err != nil {
			return nil, fmt.Errorf("sqldb: spouses of %s: %w", id, err)
		}
		raw.Spouses = spouses
	}
	return &raw, nil
}

func (s *Source) spouses(db *gorm.DB, id string) ([]person.RawSpouse, error) {
	var links []MarriageRow
	if err := db.Where("person_a = ? OR person_b = ?", id, id).Order("date, person_a, person_b").Find(&links).Error; err != nil {
		return nil, err
	}
	out := make([]person.RawSpouse, 0, len(links))
	if len(links) == 0 {
		return out, nil
	}
	other := make([]string, 0, len(links))
	for _, l := range links {
		if l.PersonA == id {
			other = append(other, l.PersonB)
		} else {
			other = append(other, l.PersonA)
		}
	}
	var rows []PersonRow
	if err := db.Where("id IN ?", other).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]PersonRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	for i, l := range links {
		r, ok := byID[other[i]]
		if !ok {
			r = PersonRow{ID: other[i]}
		}
		out = append(out, person.RawSpouse{
			Raw:              r.raw(),
			MarriageDate:     l.Date,
			MarriageEndDate:  l.EndDate,
			MarriageLocation: l.Location,
			NotMarried:       person.Flag(l.NotMarried),
			DoNotDisplay:     person.Flag(l.DoNotDisplay),
		})
	}
	return out, nil
}

// Seed upserts people and their marriages in one transaction.
func (s *Source) Seed(ctx context.Context, people []person.Raw) error {
	now := time.Now().UTC()
	rows := make([]PersonRow, 0, len(people))
	var links []MarriageRow
	seen := map[[2]string]bool{}
	for _, p := range people {
		if p.ID == "" {
			continue
		}
		r := rowFromRaw(p)
		r.UpdatedAt = now
		rows = append(rows, r)
		for _, sp := range p.Spouses {
			if sp.ID == "" {
				continue
			}
			a, b := p.ID.String(), sp.ID.String()
			if b < a {
				a, b = b, a
			}
			if seen[[2]string{a, b}] {
				continue
			}
			seen[[2]string{a, b}] = true
			links = append(links, MarriageRow{
				PersonA:      a,
				PersonB:      b,
				Date:         sp.MarriageDate,
				EndDate:      sp.MarriageEndDate,
				Location:     sp.MarriageLocation,
				NotMarried:   bool(sp.NotMarried),
				DoNotDisplay: bool(sp.DoNotDisplay),
			})
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(links) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqldb: seed: %w", err)
	}
	s.log.Info("sql source seeded", "people", len(rows), "marriages", len(links))
	return nil
}

func bags(rows []PersonRow) map[person.ID]person.Raw {
	out := make(map[person.ID]person.Raw, len(rows))
	for _, r := range rows {
		out[person.ID(r.ID)] = r.raw()
	}
	return out
}
