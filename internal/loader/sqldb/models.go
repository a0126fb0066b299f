package sqldb

import (
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/kinview-backend/internal/person"
)

type PersonRow struct {
	ID              string `gorm:"primaryKey;size:64"`
	Name            string
	FirstName       string
	MiddleName      string
	LastNameAtBirth string
	LastNameCurrent string
	BirthDate       string `gorm:"size:10"`
	DeathDate       string `gorm:"size:10"`
	BirthLocation   string
	DeathLocation   string
	Gender          string `gorm:"size:16"`
	FatherID        string `gorm:"size:64;index"`
	MotherID        string `gorm:"size:64;index"`
	Privacy         int
	IsLiving        bool
	NoChildren      bool
	// DataStatus keeps the source's per-field status flags, e.g. Spouse=blank.
	DataStatus datatypes.JSONType[map[string]string]
	UpdatedAt  time.Time
}

func (PersonRow) TableName() string { return "people" }

// MarriageRow links two people. Each pair is stored once.
type MarriageRow struct {
	PersonA      string `gorm:"primaryKey;size:64"`
	PersonB      string `gorm:"primaryKey;size:64;index"`
	Date         string `gorm:"size:10"`
	EndDate      string `gorm:"size:10"`
	Location     string
	NotMarried   bool
	DoNotDisplay bool
}

func (MarriageRow) TableName() string { return "marriages" }

func (r PersonRow) raw() person.Raw {
	out := person.Raw{
		ID:              person.ID(r.ID),
		Name:            r.Name,
		FirstName:       r.FirstName,
		MiddleName:      r.MiddleName,
		LastNameAtBirth: r.LastNameAtBirth,
		LastNameCurrent: r.LastNameCurrent,
		BirthDate:       r.BirthDate,
		DeathDate:       r.DeathDate,
		BirthLocation:   r.BirthLocation,
		DeathLocation:   r.DeathLocation,
		Gender:          r.Gender,
		Father:          person.ID(r.FatherID),
		Mother:          person.ID(r.MotherID),
		Privacy:         person.Int(r.Privacy),
		IsLiving:        person.Flag(r.IsLiving),
		NoChildren:      person.Flag(r.NoChildren),
	}
	if ds := r.DataStatus.Data(); len(ds) > 0 {
		out.DataStatus = ds
	}
	return out
}

func rowFromRaw(p person.Raw) PersonRow {
	return PersonRow{
		ID:              p.ID.String(),
		Name:            p.Name,
		FirstName:       p.FirstName,
		MiddleName:      p.MiddleName,
		LastNameAtBirth: p.LastNameAtBirth,
		LastNameCurrent: p.LastNameCurrent,
		BirthDate:       p.BirthDate,
		DeathDate:       p.DeathDate,
		BirthLocation:   p.BirthLocation,
		DeathLocation:   p.DeathLocation,
		Gender:          p.Gender,
		FatherID:        p.Father.String(),
		MotherID:        p.Mother.String(),
		Privacy:         int(p.Privacy),
		IsLiving:        bool(p.IsLiving),
		NoChildren:      bool(p.NoChildren),
		DataStatus:      datatypes.NewJSONType(p.DataStatus),
	}
}
