package loader

import (
	"context"
	"errors"

	"github.com/yungbote/kinview-backend/internal/person"
)

// PrimaryFields are requested on every fetch.
var PrimaryFields = []string{
	"Id", "Name", "FirstName", "MiddleName", "LastNameAtBirth", "LastNameCurrent",
	"BirthDate", "DeathDate", "BirthLocation", "DeathLocation",
	"Gender", "Father", "Mother", "Privacy", "IsLiving", "NoChildren", "DataStatus",
}

var ErrNotFound = errors.New("person not found")

// Loader fetches one profile with the primary fields plus the requested
// relation collections. Implementations do not retry.
type Loader interface {
	Get(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error)
}

// Func adapts a function to Loader.
type Func func(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error)

func (f Func) Get(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error) {
	return f(ctx, id, relations)
}

// Fields is the full field list for a request.
func Fields(relations person.Richness) []string {
	out := make([]string, 0, len(PrimaryFields)+4)
	out = append(out, PrimaryFields...)
	return append(out, relations.Fields()...)
}
