// Package report joins the profile store and deactivation log into
// flat per-user summary rows for the CLI's reports and
// suspension-report subcommands. It stops at the data-shape join —
// rendering to Markdown or HTML is out of scope.
package report

import (
	"time"

	"github.com/travisbrown/twprofiles/internal/deactivation"
	"github.com/travisbrown/twprofiles/internal/profilestore"
)

// Row is one user's archive summary: their most recently observed
// screen name, the open window the archive has seen them across, and
// their current status if the deactivation log has one.
type Row struct {
	UserID        int64
	ScreenName    string
	FirstObserved time.Time
	LastObserved  time.Time
	Status        deactivation.Status
	Suspended     bool
}

// Build joins every user in store with their current status in log,
// sorted ascending by user id.
func Build(store *profilestore.Store, log *deactivation.Log) ([]Row, error) {
	var rows []Row

	err := store.Iter(func(b profilestore.Batch) error {
		if len(b.Entries) == 0 {
			return nil
		}
		first := b.Entries[0].FirstObserved
		last := b.Entries[len(b.Entries)-1]

		row := Row{
			UserID:        b.UserID,
			ScreenName:    last.Profile.ScreenName,
			FirstObserved: first,
			LastObserved:  time.Unix(last.Profile.Snapshot, 0).UTC(),
		}
		for _, e := range b.Entries {
			if e.FirstObserved.Before(row.FirstObserved) {
				row.FirstObserved = e.FirstObserved
			}
		}
		if status, ok := log.Status(b.UserID); ok {
			row.Status = status
			row.Suspended = status == deactivation.Suspended
		}

		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// SuspensionReport narrows Build's output to currently suspended users.
func SuspensionReport(store *profilestore.Store, log *deactivation.Log) ([]Row, error) {
	rows, err := Build(store, log)
	if err != nil {
		return nil, err
	}

	var suspended []Row
	for _, row := range rows {
		if row.Suspended {
			suspended = append(suspended, row)
		}
	}
	return suspended, nil
}
