package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/travisbrown/twprofiles/internal/bulkimport"
	"github.com/travisbrown/twprofiles/internal/config"
	"github.com/travisbrown/twprofiles/internal/logging"
	"github.com/travisbrown/twprofiles/internal/model"
)

// runImport extracts every embedded user profile from a TSG capture
// archive and folds it into the store. ExtractArchive writes one JSON
// profile per line to an io.Writer; an io.Pipe lets the extraction
// and the store writes overlap instead of buffering the whole archive
// in memory first.
func runImport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: twprofiles import <archive.zip>")
	}
	archivePath := fs.Arg(0)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pr, pw := io.Pipe()

	extractErrCh := make(chan error, 1)
	go func() {
		extractErrCh <- bulkimport.ExtractArchive(archivePath, pw)
		pw.Close()
	}()

	imported := 0
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var profile model.Profile
		if err := json.Unmarshal(scanner.Bytes(), &profile); err != nil {
			return fmt.Errorf("import: decode profile: %w", err)
		}
		if err := store.Update(profile); err != nil {
			return fmt.Errorf("import: store update id=%d: %w", profile.ID, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("import: read extracted profiles: %w", err)
	}
	if err := <-extractErrCh; err != nil {
		return fmt.Errorf("import: extract archive: %w", err)
	}

	logging.Info().Str("archive", archivePath).Int("imported", imported).Msg("import complete")
	return nil
}
