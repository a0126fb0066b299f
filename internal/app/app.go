package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/kinview-backend/internal/chart"
	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/events"
	kvhttp "github.com/yungbote/kinview-backend/internal/http"
	httpH "github.com/yungbote/kinview-backend/internal/http/handlers"
	"github.com/yungbote/kinview-backend/internal/observability"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
	"github.com/yungbote/kinview-backend/internal/session"
	"github.com/yungbote/kinview-backend/internal/sources"
)

type App struct {
	Log    *logger.Logger
	Config *config.Config

	source   *sources.Source
	bus      events.Bus
	registry *session.Registry
	server   *kvhttp.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "kinview",
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	src, err := sources.New(ctx, cfg.Source, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init source: %w", err)
	}

	bus, err := newBus(ctx, cfg.Events, log)
	if err != nil {
		_ = src.Close(ctx)
		log.Sync()
		return nil, fmt.Errorf("init events: %w", err)
	}

	charts, err := chart.New(chart.Options{FontPath: cfg.Chart.FontPath, FontSize: cfg.Chart.FontSize})
	if err != nil {
		log.Warn("chart font unavailable, charts disabled", "error", err)
		charts = nil
	}

	registry := session.NewRegistry(src.Loader, bus, cfg.Sessions, cfg.Tree, log)

	checks := map[string]httpH.ReadyCheck{"source": src.Ping}
	if p, ok := bus.(interface{ Ping(context.Context) error }); ok {
		checks["events"] = p.Ping
	}
	sessions := httpH.NewSessionHandler(log, registry)
	server := kvhttp.NewServer(cfg.HTTP, kvhttp.RouterConfig{
		Log:             log,
		AllowOrigins:    cfg.HTTP.AllowOrigins,
		MaxRequestBytes: cfg.HTTP.MaxRequestBytes,
		Metrics:         metrics,
		HealthHandler:   httpH.NewHealthHandler(checks),
		SessionHandler:  sessions,
		TreeHandler:     httpH.NewTreeHandler(log, sessions, charts),
		RealtimeHandler: httpH.NewRealtimeHandler(log, bus, sessions),
	}, log)

	return &App{
		Log:          log,
		Config:       cfg,
		source:       src,
		bus:          bus,
		registry:     registry,
		server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

func newBus(ctx context.Context, cfg config.EventsConfig, log *logger.Logger) (events.Bus, error) {
	switch cfg.Type {
	case "redis":
		return events.NewRedisBus(ctx, cfg, log)
	case "", "memory":
		return events.NewMemoryBus(log), nil
	default:
		return nil, fmt.Errorf("unsupported events type %q", cfg.Type)
	}
}

// Run serves HTTP and sweeps idle sessions until ctx ends, then releases
// the source, the event bus and the tracer.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	g.Go(func() error { return a.registry.Run(gctx) })
	err := g.Wait()

	cleanupCtx := context.WithoutCancel(ctx)
	if cerr := a.bus.Close(); cerr != nil {
		a.Log.Warn("event bus close failed", "error", cerr)
	}
	if cerr := a.source.Close(cleanupCtx); cerr != nil {
		a.Log.Warn("source close failed", "error", cerr)
	}
	if cerr := a.otelShutdown(cleanupCtx); cerr != nil {
		a.Log.Warn("otel shutdown failed", "error", cerr)
	}
	a.Log.Info("kinview stopped")
	a.Log.Sync()
	return err
}
