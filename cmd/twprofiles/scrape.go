package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/travisbrown/twprofiles/internal/config"
	"github.com/travisbrown/twprofiles/internal/logging"
	"github.com/travisbrown/twprofiles/internal/scheduler"
	"github.com/travisbrown/twprofiles/internal/scraper"
	"github.com/travisbrown/twprofiles/internal/userlookup"
)

// runScrape wires the four core components into the continuous
// rescrape loop described by the system's data flow, running until
// SIGINT or SIGTERM. The real Twitter API client is out of scope, so
// -lookup-fixture names a recorded JSON-lines fixture served by
// userlookup.FileLookup in its place.
func runScrape(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	fixturePath := fs.String("lookup-fixture", "", "path to a userlookup.FileLookup JSON-lines fixture")
	once := fs.Bool("once", false, "run a single batch and exit instead of looping")
	fs.Parse(args)
	if *fixturePath == "" {
		return fmt.Errorf("usage: twprofiles scrape -lookup-fixture <path> [-once]")
	}

	runID := uuid.New()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	log, err := openDeactivationLog(cfg)
	if err != nil {
		return err
	}

	items, err := loadBootstrap(cfg)
	if err != nil {
		return err
	}
	sched := scheduler.New(items)
	sched.SetSkipDeactivationRecheck(cfg.Scheduler.SkipDeactivationRecheck)

	fixture, err := os.Open(*fixturePath)
	if err != nil {
		return fmt.Errorf("scrape: open lookup fixture: %w", err)
	}
	fileLookup, err := userlookup.NewFileLookup(fixture)
	fixture.Close()
	if err != nil {
		return fmt.Errorf("scrape: load lookup fixture: %w", err)
	}
	lookup := userlookup.NewRateLimited(
		fileLookup,
		rate.Limit(cfg.RateLimit.AppPerSecond), cfg.RateLimit.AppBurst,
		rate.Limit(cfg.RateLimit.UserPerSecond), cfg.RateLimit.UserBurst,
	)

	runner := scraper.NewRunner(store, sched, lookup, log, scraper.Options{BatchSize: cfg.Scraper.BatchSize})

	logging.Info().Str("run_id", runID.String()).Int("bootstrap_items", len(items)).Msg("scrape run starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logging.Info().Str("run_id", runID.String()).Msg("shutdown signal received")
		cancel()
	}()

	if *once {
		err = runner.RunBatch(ctx)
	} else {
		err = runner.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("scrape: %w", err)
	}

	if saveErr := saveDeactivationLog(cfg, runner.Log()); saveErr != nil {
		return fmt.Errorf("scrape: save deactivation log: %w", saveErr)
	}

	logging.Info().Str("run_id", runID.String()).Msg("scrape run stopped")
	return nil
}

func loadBootstrap(cfg *config.Config) ([]scheduler.BootstrapItem, error) {
	if cfg.Scheduler.BootstrapPath == "" {
		return nil, nil
	}
	f, err := os.Open(cfg.Scheduler.BootstrapPath)
	if err != nil {
		return nil, fmt.Errorf("scrape: open bootstrap file: %w", err)
	}
	defer f.Close()
	return scheduler.LoadBootstrap(f)
}
