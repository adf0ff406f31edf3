package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/travisbrown/twprofiles/internal/config"
	"github.com/travisbrown/twprofiles/internal/deactivation"
	"github.com/travisbrown/twprofiles/internal/profilestore"
)

func openStore(cfg *config.Config) (*profilestore.Store, error) {
	return profilestore.Open(cfg.Store.Path, profilestore.Options{
		EnableStatistics: cfg.Store.EnableStatistics,
		ValueLogFileSize: cfg.Store.ValueLogFileSize,
	})
}

// openDeactivationLog loads the log from cfg.Deactivation.Path, or
// returns an empty one if the file does not exist yet — the first
// scrape run on a fresh archive has no prior log to read.
func openDeactivationLog(cfg *config.Config) (*deactivation.Log, error) {
	f, err := os.Open(cfg.Deactivation.Path)
	if errors.Is(err, os.ErrNotExist) {
		return deactivation.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open deactivation log %q: %w", cfg.Deactivation.Path, err)
	}
	defer f.Close()

	return deactivation.Read(f)
}

func saveDeactivationLog(cfg *config.Config, log *deactivation.Log) error {
	f, err := os.Create(cfg.Deactivation.Path)
	if err != nil {
		return fmt.Errorf("create deactivation log %q: %w", cfg.Deactivation.Path, err)
	}
	defer f.Close()

	return log.Write(f)
}
