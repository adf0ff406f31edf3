package report

import (
	"testing"
	"time"

	"github.com/travisbrown/twprofiles/internal/deactivation"
	"github.com/travisbrown/twprofiles/internal/model"
	"github.com/travisbrown/twprofiles/internal/profilestore"
)

func openTestStore(t *testing.T) *profilestore.Store {
	t.Helper()
	store, err := profilestore.Open("", profilestore.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func profileAt(id, snapshot int64, screenName string) model.Profile {
	return model.Profile{
		ID:         id,
		IDStr:      "x",
		ScreenName: screenName,
		Name:       "Name",
		CreatedAt:  "Wed Oct 10 20:19:24 +0000 2010",
		Snapshot:   snapshot,
	}
}

func TestBuildJoinsStoreAndLog(t *testing.T) {
	store := openTestStore(t)
	if err := store.Update(profileAt(1, 1000, "alice")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Update(profileAt(1, 2000, "alice2")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Update(profileAt(2, 1500, "bob")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	log := deactivation.New()
	log.Append(2, deactivation.Suspended, time.Unix(1600, 0))

	rows, err := Build(store, log)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	byID := map[int64]Row{}
	for _, r := range rows {
		byID[r.UserID] = r
	}

	alice := byID[1]
	if alice.ScreenName != "alice2" {
		t.Errorf("alice.ScreenName = %q, want alice2 (most recent snapshot)", alice.ScreenName)
	}
	if alice.Suspended {
		t.Error("alice should not be marked suspended")
	}

	bob := byID[2]
	if !bob.Suspended {
		t.Error("bob should be marked suspended")
	}
	if bob.Status != deactivation.Suspended {
		t.Errorf("bob.Status = %v, want Suspended", bob.Status)
	}
}

func TestSuspensionReportFiltersToSuspendedOnly(t *testing.T) {
	store := openTestStore(t)
	if err := store.Update(profileAt(1, 1000, "alice")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Update(profileAt(2, 1000, "bob")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	log := deactivation.New()
	log.Append(2, deactivation.Suspended, time.Unix(1600, 0))

	rows, err := SuspensionReport(store, log)
	if err != nil {
		t.Fatalf("SuspensionReport: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != 2 {
		t.Fatalf("rows = %+v, want only user 2", rows)
	}
}

func TestBuildReturnsEmptyForEmptyStore(t *testing.T) {
	store := openTestStore(t)
	rows, err := Build(store, deactivation.New())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}
