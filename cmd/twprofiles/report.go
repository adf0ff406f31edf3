package main

import (
	"flag"
	"os"

	"github.com/goccy/go-json"

	"github.com/travisbrown/twprofiles/internal/config"
	"github.com/travisbrown/twprofiles/internal/deactivation"
	"github.com/travisbrown/twprofiles/internal/profilestore"
	"github.com/travisbrown/twprofiles/internal/report"
)

func runReports(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	fs.Parse(args)

	store, log, err := openStoreAndLog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := report.Build(store, log)
	if err != nil {
		return err
	}
	return encodeRows(rows)
}

func runSuspensionReport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("suspension-report", flag.ExitOnError)
	fs.Parse(args)

	store, log, err := openStoreAndLog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := report.SuspensionReport(store, log)
	if err != nil {
		return err
	}
	return encodeRows(rows)
}

func openStoreAndLog(cfg *config.Config) (*profilestore.Store, *deactivation.Log, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	log, err := openDeactivationLog(cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, log, nil
}

func encodeRows(rows []report.Row) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
