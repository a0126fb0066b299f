package loader

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/kinview-backend/internal/observability"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

const tracerName = "github.com/yungbote/kinview-backend/internal/loader"

type traced struct {
	inner  Loader
	source string
	log    *logger.Logger
	tracer trace.Tracer
}

// Traced wraps inner with a span and a log line per fetch.
func Traced(source string, inner Loader, log *logger.Logger) Loader {
	if inner == nil {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	return &traced{
		inner:  inner,
		source: source,
		log:    log.With("component", "Loader", "source", source),
		tracer: otel.Tracer(tracerName),
	}
}

func (t *traced) Get(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error) {
	ctx, span := t.tracer.Start(ctx, "loader.get", trace.WithAttributes(
		attribute.String("loader.source", t.source),
		attribute.String("person.id", id.String()),
		attribute.String("person.relations", relations.String()),
	))
	defer span.End()

	start := time.Now()
	raw, err := t.inner.Get(ctx, id, relations)
	dur := time.Since(start)
	elapsed := dur.Milliseconds()
	if err == nil && raw == nil {
		err = ErrNotFound
	}
	observability.Current().ObserveFetch(t.source, outcome(err), dur)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.log.Warn("person fetch failed", "person_id", id, "relations", relations.String(), "duration_ms", elapsed, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("person.richness", raw.Has().String()))
	t.log.Debug("person fetched", "person_id", id, "relations", relations.String(), "duration_ms", elapsed)
	return raw, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
