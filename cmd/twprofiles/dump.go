package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/travisbrown/twprofiles/internal/config"
	"github.com/travisbrown/twprofiles/internal/model"
	"github.com/travisbrown/twprofiles/internal/profilestore"
)

// runCount prints the number of distinct user ids in the archive.
func runCount(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	fs.Parse(args)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n := 0
	if err := store.Iter(func(profilestore.Batch) error { n++; return nil }); err != nil {
		return fmt.Errorf("count: %w", err)
	}
	fmt.Println(n)
	return nil
}

// runStats prints the archive's size diagnostics as JSON.
func runStats(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(store.Statistics())
}

// latest returns the most recently observed profile in a batch, which
// Iter already guarantees is sorted ascending by snapshot.
func latest(b profilestore.Batch) model.Profile {
	return b.Entries[len(b.Entries)-1].Profile
}

// dumpField walks the full archive printing one "<id>\t<value>" line
// per user for every batch where extract returns ok.
func dumpField(store *profilestore.Store, extract func(model.Profile) (string, bool)) error {
	w := os.Stdout
	return store.Iter(func(b profilestore.Batch) error {
		if len(b.Entries) == 0 {
			return nil
		}
		value, ok := extract(latest(b))
		if !ok {
			return nil
		}
		_, err := fmt.Fprintf(w, "%d\t%s\n", b.UserID, value)
		return err
	})
}

func runScreenNames(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("screen-names", flag.ExitOnError)
	fs.Parse(args)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return dumpField(store, func(p model.Profile) (string, bool) {
		return p.ScreenName, true
	})
}

func runStatuses(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("statuses", flag.ExitOnError)
	fs.Parse(args)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return dumpField(store, func(p model.Profile) (string, bool) {
		return fmt.Sprintf("%d", p.StatusesCount), true
	})
}

func runBio(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("bio", flag.ExitOnError)
	fs.Parse(args)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return dumpField(store, func(p model.Profile) (string, bool) {
		if p.Description == nil || *p.Description == "" {
			return "", false
		}
		return strings.ReplaceAll(*p.Description, "\n", " "), true
	})
}

func runURLs(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("urls", flag.ExitOnError)
	fs.Parse(args)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return dumpField(store, func(p model.Profile) (string, bool) {
		urls := profileURLs(p)
		if len(urls) == 0 {
			return "", false
		}
		return strings.Join(urls, ","), true
	})
}

// profileURLs collects the profile's bare URL plus every URL in its
// url entity block (the expanded form, or the t.co form when there is
// no expansion), deduplicated in encounter order. The description
// entity block is not read.
func profileURLs(p model.Profile) []string {
	var urls []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	if p.URL != nil {
		add(*p.URL)
	}
	if p.Entities != nil && p.Entities.URL != nil {
		for _, u := range p.Entities.URL.URLs {
			if u.ExpandedURL != "" {
				add(u.ExpandedURL)
			} else {
				add(u.URL)
			}
		}
	}
	return urls
}

func runWithheld(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("withheld", flag.ExitOnError)
	fs.Parse(args)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return dumpField(store, func(p model.Profile) (string, bool) {
		if len(p.WithheldInCountries) == 0 {
			return "", false
		}
		return strings.Join(p.WithheldInCountries, ","), true
	})
}
