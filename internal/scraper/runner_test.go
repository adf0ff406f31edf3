package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/travisbrown/twprofiles/internal/deactivation"
	"github.com/travisbrown/twprofiles/internal/model"
	"github.com/travisbrown/twprofiles/internal/profilestore"
	"github.com/travisbrown/twprofiles/internal/scheduler"
	"github.com/travisbrown/twprofiles/internal/userlookup"
)

type stubLookup struct {
	results []userlookup.Result
}

func (s *stubLookup) LookupBatch(ctx context.Context, ids []int64) ([]userlookup.Result, error) {
	return s.results, nil
}

func sampleProfile(id int64, snapshot int64) model.Profile {
	return model.Profile{
		ID:                   id,
		IDStr:                "1",
		ScreenName:           "alice",
		Name:                 "Alice",
		CreatedAt:            "Wed Oct 10 20:19:24 +0000 2018",
		ProfileImageURLHTTPS: "https://example.com/a.jpg",
		Snapshot:             snapshot,
	}
}

func openTestStore(t *testing.T) *profilestore.Store {
	t.Helper()
	store, err := profilestore.Open("", profilestore.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunBatchWritesUpdatesAndClosesPriorDeactivation(t *testing.T) {
	store := openTestStore(t)
	sched := scheduler.New(nil)
	sched.ProcessAdditions([]int64{1})

	log := deactivation.New()
	log.Append(1, deactivation.NotFound, time.Unix(1000, 0).UTC())

	lookup := &stubLookup{results: []userlookup.Result{
		{UserID: 1, Ok: true, Profile: sampleProfile(1, 0)},
	}}

	now := time.Unix(2000, 0).UTC()
	r := NewRunner(store, sched, lookup, log, Options{BatchSize: 10, Now: func() time.Time { return now }})

	if err := r.RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	entries, err := store.Lookup(1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(entries) != 1 || entries[0].Profile.Snapshot != now.Unix() {
		t.Fatalf("expected one entry stamped with snapshot %d, got %+v", now.Unix(), entries)
	}

	if _, open := r.Log().Status(1); open {
		t.Error("expected the prior NotFound entry to be closed by the successful fetch")
	}

	if target, ok := sched.Target(1); !ok || target == 0 {
		t.Errorf("expected id 1 requeued with a fresh non-immediate target, got (%d, %v)", target, ok)
	}
}

func TestRunBatchRejectsPayloadWithExistingSnapshot(t *testing.T) {
	store := openTestStore(t)
	sched := scheduler.New(nil)
	sched.ProcessAdditions([]int64{1})

	lookup := &stubLookup{results: []userlookup.Result{
		{UserID: 1, Ok: true, Profile: sampleProfile(1, 999)},
	}}

	r := NewRunner(store, sched, lookup, nil, Options{BatchSize: 10})
	if err := r.RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	entries, err := store.Lookup(1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected the malformed payload to be dropped, got %d entries", len(entries))
	}
}

func TestRunBatchRecordsDeactivationAndFeedsScheduler(t *testing.T) {
	store := openTestStore(t)
	sched := scheduler.New(nil)
	sched.ProcessAdditions([]int64{1})

	lookup := &stubLookup{results: []userlookup.Result{
		{UserID: 1, Ok: false, StatusCode: 63},
	}}

	now := time.Unix(5000, 0).UTC()
	r := NewRunner(store, sched, lookup, nil, Options{BatchSize: 10, Now: func() time.Time { return now }})

	if err := r.RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	status, open := r.Log().Status(1)
	if !open || status != deactivation.Suspended {
		t.Errorf("Status(1) = (%v, %v), want (Suspended, true)", status, open)
	}
}

func TestRunBatchReturnsNilOnEmptyQueue(t *testing.T) {
	store := openTestStore(t)
	sched := scheduler.New(nil)
	r := NewRunner(store, sched, &stubLookup{}, nil, Options{})

	if err := r.RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch on empty queue: %v", err)
	}
}
