package graphdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
)

// Graph layout:
//
//	(:Person {id, name, first_name, ..., father, mother})
//	(child:Person)-[:CHILD_OF]->(parent:Person)
//	(a:Person)-[:MARRIED {date, end_date, location, not_married, do_not_display}]-(b:Person)
type Source struct {
	client *Client
}

var _ loader.Loader = (*Source)(nil)

func NewSource(client *Client) *Source {
	return &Source{client: client}
}

const (
	qPerson   = `MATCH (p:Person {id: $id}) RETURN p`
	qParents  = `MATCH (:Person {id: $id})-[:CHILD_OF]->(r:Person) RETURN r`
	qChildren = `MATCH (:Person {id: $id})<-[:CHILD_OF]-(r:Person) RETURN r`
	qSiblings = `MATCH (p:Person {id: $id})-[:CHILD_OF]->(:Person)<-[:CHILD_OF]-(r:Person)
WHERE r.id <> p.id
RETURN DISTINCT r`
	qSpouses = `MATCH (:Person {id: $id})-[m:MARRIED]-(r:Person) RETURN r, properties(m) AS m`
)

func (s *Source) Get(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error) {
	if s.client == nil || s.client.Driver == nil {
		return nil, fmt.Errorf("graphdb: not connected")
	}
	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"id": id.String()}
		recs, err := collect(ctx, tx, qPerson, params)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, fmt.Errorf("graphdb: %s: %w", id, loader.ErrNotFound)
		}
		raw := rawFromProps(nodeProps(recs[0], "p"))

		related := func(q string) (map[person.ID]person.Raw, error) {
			rs, err := collect(ctx, tx, q, params)
			if err != nil {
				return nil, err
			}
			m := make(map[person.ID]person.Raw, len(rs))
			for _, rec := range rs {
				r := rawFromProps(nodeProps(rec, "r"))
				if r.ID != "" {
					m[r.ID] = r
				}
			}
			return m, nil
		}
		if relations.Has(person.Parents) {
			if raw.Parents, err = related(qParents); err != nil {
				return nil, err
			}
		}
		if relations.Has(person.Children) {
			if raw.Children, err = related(qChildren); err != nil {
				return nil, err
			}
		}
		if relations.Has(person.Siblings) {
			if raw.Siblings, err = related(qSiblings); err != nil {
				return nil, err
			}
		}
		if relations.Has(person.Spouses) {
			rs, err := collect(ctx, tx, qSpouses, params)
			if err != nil {
				return nil, err
			}
			raw.Spouses = make([]person.RawSpouse, 0, len(rs))
			for _, rec := range rs {
				sp := spouseFromProps(nodeProps(rec, "r"), mapValue(rec, "m"))
				if sp.ID != "" {
					raw.Spouses = append(raw.Spouses, sp)
				}
			}
		}
		return &raw, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*person.Raw), nil
}

func collect(ctx context.Context, tx neo4j.ManagedTransaction, q string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := tx.Run(ctx, q, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

func nodeProps(rec *neo4j.Record, key string) map[string]any {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	if n, ok := v.(neo4j.Node); ok {
		return n.Props
	}
	return nil
}

func mapValue(rec *neo4j.Record, key string) map[string]any {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

func rawFromProps(p map[string]any) person.Raw {
	return person.Raw{
		ID:              person.ID(str(p["id"])),
		Name:            str(p["name"]),
		FirstName:       str(p["first_name"]),
		MiddleName:      str(p["middle_name"]),
		LastNameAtBirth: str(p["last_name_at_birth"]),
		LastNameCurrent: str(p["last_name_current"]),
		BirthDate:       str(p["birth_date"]),
		DeathDate:       str(p["death_date"]),
		BirthLocation:   str(p["birth_location"]),
		DeathLocation:   str(p["death_location"]),
		Gender:          str(p["gender"]),
		Father:          person.ID(str(p["father"])),
		Mother:          person.ID(str(p["mother"])),
		Privacy:         person.Int(integer(p["privacy"])),
		IsLiving:        person.Flag(boolean(p["is_living"])),
		NoChildren:      person.Flag(boolean(p["no_children"])),
	}
}

func spouseFromProps(node, marriage map[string]any) person.RawSpouse {
	return person.RawSpouse{
		Raw:              rawFromProps(node),
		MarriageDate:     str(marriage["date"]),
		MarriageEndDate:  str(marriage["end_date"]),
		MarriageLocation: str(marriage["location"]),
		NotMarried:       person.Flag(boolean(marriage["not_married"])),
		DoNotDisplay:     person.Flag(boolean(marriage["do_not_display"])),
	}
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func integer(v any) int {
	switch t := v.(type) {
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	default:
		return 0
	}
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "1" || s == "true" || s == "yes"
	default:
		return false
	}
}
