package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/loader/fixture"
	"github.com/yungbote/kinview-backend/internal/loader/graphdb"
	"github.com/yungbote/kinview-backend/internal/loader/sqldb"
	"github.com/yungbote/kinview-backend/internal/loader/wikiapi"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

// Seeder is implemented by sources that can be written to.
type Seeder interface {
	Seed(ctx context.Context, people []person.Raw) error
}

// Source is the configured person loader plus its lifecycle hooks.
type Source struct {
	Name   string
	Loader loader.Loader
	// Seeder is nil for read-only sources.
	Seeder Seeder

	closeFn func(ctx context.Context) error
	pingFn  func(ctx context.Context) error
}

// Ping checks the backing store. Sources without a connection always pass.
func (s *Source) Ping(ctx context.Context) error {
	if s == nil || s.pingFn == nil {
		return nil
	}
	return s.pingFn(ctx)
}

func (s *Source) Close(ctx context.Context) error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}

// New builds the source named by cfg.Type and wraps it with tracing and
// logging.
func New(ctx context.Context, cfg config.SourceConfig, log *logger.Logger) (*Source, error) {
	if log == nil {
		return nil, fmt.Errorf("sources: logger required")
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Type))
	out := &Source{Name: name}

	var inner loader.Loader
	switch name {
	case "wikitree", "wikiapi", "":
		c, err := wikiapi.New(wikiapi.Options{
			BaseURL: cfg.BaseURL,
			AppID:   cfg.AppID,
			Timeout: cfg.Timeout.Duration,
		})
		if err != nil {
			return nil, err
		}
		out.Name = "wikitree"
		inner = c
	case "fixture":
		src, err := fixture.Load(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		inner = src
	case "neo4j":
		client, err := graphdb.Open(ctx, cfg.Neo4j, log)
		if err != nil {
			return nil, err
		}
		inner = graphdb.NewSource(client)
		out.Seeder = client
		out.closeFn = client.Close
		out.pingFn = client.Ping
	case "sql":
		src, err := sqldb.Open(cfg.SQL, log)
		if err != nil {
			return nil, err
		}
		inner = src
		out.Seeder = src
		out.closeFn = func(context.Context) error { return src.Close() }
		out.pingFn = src.Ping
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Type)
	}

	out.Loader = loader.Traced(out.Name, inner, log)
	log.Info("person source ready", "source", out.Name)
	return out, nil
}
