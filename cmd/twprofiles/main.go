// Command twprofiles is the archive's CLI: bulk import from TSG
// capture archives, point lookups and full-archive field dumps against
// the profile store, suspension reports joining the store with the
// deactivation log, and a scrape subcommand that runs the continuous
// rescrape loop.
//
// Usage:
//
//	twprofiles <subcommand> [flags]
//
// Subcommands: import, lookup, count, stats, screen-names, statuses,
// bio, urls, withheld, suspension-report, reports, scrape.
package main

import (
	"fmt"
	"os"

	"github.com/travisbrown/twprofiles/internal/config"
	"github.com/travisbrown/twprofiles/internal/logging"
)

type subcommand struct {
	name string
	run  func(cfg *config.Config, args []string) error
}

var subcommands = []subcommand{
	{"import", runImport},
	{"lookup", runLookup},
	{"count", runCount},
	{"stats", runStats},
	{"screen-names", runScreenNames},
	{"statuses", runStatuses},
	{"bio", runBio},
	{"urls", runURLs},
	{"withheld", runWithheld},
	{"suspension-report", runSuspensionReport},
	{"reports", runReports},
	{"scrape", runScrape},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller, Timestamp: cfg.Logging.Timestamp})

	name := os.Args[1]
	for _, sc := range subcommands {
		if sc.name != name {
			continue
		}
		if err := sc.run(cfg, os.Args[2:]); err != nil {
			logging.Error().Err(err).Str("subcommand", name).Msg("command failed")
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "twprofiles: unknown subcommand %q\n\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: twprofiles <subcommand> [flags]")
	fmt.Fprintln(os.Stderr, "subcommands:")
	for _, sc := range subcommands {
		fmt.Fprintf(os.Stderr, "  %s\n", sc.name)
	}
}
