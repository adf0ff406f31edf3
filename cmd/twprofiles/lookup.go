package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/travisbrown/twprofiles/internal/config"
)

// runLookup prints every historical entry known for a user id,
// ascending by snapshot, as a JSON array.
func runLookup(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: twprofiles lookup <user_id>")
	}
	userID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("lookup: invalid user_id %q: %w", fs.Arg(0), err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Lookup(userID)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
