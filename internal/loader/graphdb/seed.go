package graphdb

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/kinview-backend/internal/person"
)

// Seed writes people, parent links and marriages. Existing nodes are
// updated in place.
func (c *Client) Seed(ctx context.Context, people []person.Raw) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// Best-effort; restricted users may not create constraints.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT person_id_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.id IS UNIQUE`, nil); err != nil {
		c.log.Warn("graphdb schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	nodes, links, marriages := seedRows(people)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			q    string
			rows []map[string]any
		}{
			{`UNWIND $rows AS n MERGE (p:Person {id: n.id}) SET p += n`, nodes},
			{`UNWIND $rows AS l
MATCH (c:Person {id: l.child}), (p:Person {id: l.parent})
MERGE (c)-[:CHILD_OF]->(p)`, links},
			{`UNWIND $rows AS m
MATCH (a:Person {id: m.a}), (b:Person {id: m.b})
MERGE (a)-[r:MARRIED]-(b)
SET r.date = m.date, r.end_date = m.end_date, r.location = m.location,
    r.not_married = m.not_married, r.do_not_display = m.do_not_display`, marriages},
		}
		for _, st := range steps {
			if len(st.rows) == 0 {
				continue
			}
			res, err := tx.Run(ctx, st.q, map[string]any{"rows": st.rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	c.log.Info("graphdb seeded", "people", len(nodes), "links", len(links), "marriages", len(marriages))
	return nil
}

func seedRows(people []person.Raw) (nodes, links, marriages []map[string]any) {
	for _, p := range people {
		if p.ID == "" {
			continue
		}
		nodes = append(nodes, map[string]any{
			"id":                 p.ID.String(),
			"name":               p.Name,
			"first_name":         p.FirstName,
			"middle_name":        p.MiddleName,
			"last_name_at_birth": p.LastNameAtBirth,
			"last_name_current":  p.LastNameCurrent,
			"birth_date":         p.BirthDate,
			"death_date":         p.DeathDate,
			"birth_location":     p.BirthLocation,
			"death_location":     p.DeathLocation,
			"gender":             p.Gender,
			"father":             p.Father.String(),
			"mother":             p.Mother.String(),
			"privacy":            int64(p.Privacy),
			"is_living":          bool(p.IsLiving),
			"no_children":        bool(p.NoChildren),
		})
		for _, parent := range []person.ID{p.Father, p.Mother} {
			if parent != "" {
				links = append(links, map[string]any{"child": p.ID.String(), "parent": parent.String()})
			}
		}
		for _, s := range p.Spouses {
			if s.ID == "" {
				continue
			}
			marriages = append(marriages, map[string]any{
				"a":              p.ID.String(),
				"b":              s.ID.String(),
				"date":           s.MarriageDate,
				"end_date":       s.MarriageEndDate,
				"location":       s.MarriageLocation,
				"not_married":    bool(s.NotMarried),
				"do_not_display": bool(s.DoNotDisplay),
			})
		}
	}
	return nodes, links, marriages
}
