package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/loader/fixture"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
	"github.com/yungbote/kinview-backend/internal/platform/shutdown"
	"github.com/yungbote/kinview-backend/internal/sources"
)

// kinview-seed copies a fixture file into the configured neo4j or sql
// source.
func main() {
	var path string
	var dryRun bool
	flag.StringVar(&path, "file", "", "fixture file (.json, .yaml) to load")
	flag.BoolVar(&dryRun, "dry-run", false, "validate the fixture without writing")
	flag.Parse()
	if path == "" {
		fmt.Println("-file is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	err = run(ctx, cfg, log, path, dryRun)
	stop()
	if err != nil {
		log.Error("seed failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, path string, dryRun bool) error {
	f, err := fixture.ReadFile(path)
	if err != nil {
		return err
	}
	// Same id checks the fixture source applies.
	if _, err := fixture.New(f.People); err != nil {
		return err
	}
	if dryRun {
		log.Info("fixture ok", "people", len(f.People))
		return nil
	}

	src, err := sources.New(ctx, cfg.Source, log)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close(context.WithoutCancel(ctx)) }()
	if src.Seeder == nil {
		return errors.New("source " + src.Name + " is read-only")
	}
	if err := src.Seeder.Seed(ctx, f.People); err != nil {
		return fmt.Errorf("seed %s: %w", src.Name, err)
	}
	log.Info("seed complete", "source", src.Name, "people", len(f.People))
	return nil
}
