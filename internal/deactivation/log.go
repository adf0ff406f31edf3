// Package deactivation implements the in-memory deactivation log: an
// append-only record of account-status transitions (suspensions,
// deactivations, not-found responses) and their reversals, parsed
// from and serialized to a simple line-delimited format.
package deactivation

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/travisbrown/twprofiles/internal/metrics"
)

// Entry is one observed status transition for a user: the status
// seen, when it was observed, and — once a later fetch succeeds
// again — when it was reversed.
type Entry struct {
	Status   Status
	Observed time.Time
	Reversal *time.Time
}

// open reports whether this entry has not yet been reversed.
func (e Entry) open() bool {
	return e.Reversal == nil
}

// Log is the full in-memory deactivation history, grouped by user id.
type Log struct {
	entries map[int64][]Entry
}

// New returns an empty log.
func New() *Log {
	return &Log{entries: make(map[int64][]Entry)}
}

// Append records a newly observed terminal status for userID. Called
// by the scraper each time a fetch returns an unreachable status;
// Update is what later closes the entry this creates.
func (l *Log) Append(userID int64, status Status, observedAt time.Time) {
	l.entries[userID] = append(l.entries[userID], Entry{Status: status, Observed: observedAt})
	metrics.DeactivationsTotal.WithLabelValues(status.String()).Inc()
}

// Status returns the status of the first still-open entry for
// userID, if any.
func (l *Log) Status(userID int64) (Status, bool) {
	for _, entry := range l.entries[userID] {
		if entry.open() {
			return entry.Status, true
		}
	}
	return Status{}, false
}

// CurrentDeactivated returns every user with at least one unreversed
// entry.
func (l *Log) CurrentDeactivated() map[int64]struct{} {
	out := make(map[int64]struct{})
	for userID, entries := range l.entries {
		for _, e := range entries {
			if e.open() {
				out[userID] = struct{}{}
				break
			}
		}
	}
	return out
}

// EverDeactivated returns every user with any entry at all.
func (l *Log) EverDeactivated() map[int64]struct{} {
	out := make(map[int64]struct{}, len(l.entries))
	for userID := range l.entries {
		out[userID] = struct{}{}
	}
	return out
}

// CurrentSuspended returns users whose last entry is Suspended and
// who have no open entry — current-suspension and
// current-deactivation are treated as disjoint, discriminated by the
// presence or absence of an open reversal.
func (l *Log) CurrentSuspended() map[int64]struct{} {
	out := make(map[int64]struct{})
	for userID, entries := range l.entries {
		if len(entries) == 0 {
			continue
		}
		allReversed := true
		for _, e := range entries {
			if e.open() {
				allReversed = false
				break
			}
		}
		if allReversed && entries[len(entries)-1].Status == Suspended {
			out[userID] = struct{}{}
		}
	}
	return out
}

// EverSuspended returns every user with any entry whose status is
// Suspended.
func (l *Log) EverSuspended() map[int64]struct{} {
	out := make(map[int64]struct{})
	for userID, entries := range l.entries {
		for _, e := range entries {
			if e.Status == Suspended {
				out[userID] = struct{}{}
				break
			}
		}
	}
	return out
}

// Reversal is one (user id, reversal time) pair passed to Update.
type Reversal struct {
	UserID int64
	At     time.Time
}

// Update applies each reversal to the most recent entry for its
// user, if and only if that entry is still open. Reversals that name
// a user with no open entry are collected and returned; Update never
// errors, it reports the invalid tail.
func (l *Log) Update(reversals []Reversal) []Reversal {
	var invalid []Reversal

	for _, r := range reversals {
		entries := l.entries[r.UserID]
		if len(entries) == 0 {
			invalid = append(invalid, r)
			continue
		}
		last := &entries[len(entries)-1]
		if !last.open() {
			invalid = append(invalid, r)
			continue
		}
		at := r.At
		last.Reversal = &at
	}

	return invalid
}

// Validate checks every user's entry list against the timeline
// invariant: non-empty, and for every pair of consecutive entries the
// earlier has a reversal with observed < reversal < next observed. It
// returns the ids of every user whose entries violate this.
func (l *Log) Validate() []int64 {
	var invalid []int64
	for userID, entries := range l.entries {
		if !validEntries(entries) {
			invalid = append(invalid, userID)
		}
	}
	sort.Slice(invalid, func(i, j int) bool { return invalid[i] < invalid[j] })
	return invalid
}

func validEntries(entries []Entry) bool {
	if len(entries) == 0 {
		return false
	}
	for i := 0; i+1 < len(entries); i++ {
		if entries[i].Reversal == nil {
			return false
		}
		if !entries[i].Observed.Before(*entries[i].Reversal) {
			return false
		}
		if !entries[i].Reversal.Before(entries[i+1].Observed) {
			return false
		}
	}
	last := entries[len(entries)-1]
	if last.Reversal != nil && !last.Observed.Before(*last.Reversal) {
		return false
	}
	return true
}

// DeactivationRow is one flat (user id, status, observed, reversal?)
// projection row.
type DeactivationRow struct {
	UserID   int64
	Status   Status
	Observed time.Time
	Reversal *time.Time
}

// Deactivations returns every entry across every user, sorted
// ascending by user id, preserving per-user entry order.
func (l *Log) Deactivations() []DeactivationRow {
	var rows []DeactivationRow
	for _, userID := range l.sortedUserIDs() {
		for _, e := range l.entries[userID] {
			rows = append(rows, DeactivationRow{
				UserID: userID, Status: e.Status, Observed: e.Observed, Reversal: e.Reversal,
			})
		}
	}
	return rows
}

// Suspensions returns every entry whose status is Suspended, sorted
// ascending by user id.
func (l *Log) Suspensions() []DeactivationRow {
	var rows []DeactivationRow
	for _, userID := range l.sortedUserIDs() {
		for _, e := range l.entries[userID] {
			if e.Status == Suspended {
				rows = append(rows, DeactivationRow{
					UserID: userID, Status: e.Status, Observed: e.Observed, Reversal: e.Reversal,
				})
			}
		}
	}
	return rows
}

func (l *Log) sortedUserIDs() []int64 {
	ids := make([]int64, 0, len(l.entries))
	for userID := range l.entries {
		ids = append(ids, userID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Read parses a line-delimited deactivation log: one entry per line,
// four comma-separated fields (user_id, status_code, observed_epoch,
// reversal_epoch), the last of which may be empty.
func Read(r io.Reader) (*Log, error) {
	l := New()
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			return nil, newParseError(lineNo, "field count", line)
		}

		userID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, newParseError(lineNo, "user_id", fields[0])
		}

		code, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return nil, newParseError(lineNo, "status_code", fields[1])
		}
		status := ParseStatus(int32(code))

		observedEpoch, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, newParseError(lineNo, "observed_epoch", fields[2])
		}
		observed := time.Unix(observedEpoch, 0).UTC()

		var reversal *time.Time
		if fields[3] != "" {
			reversalEpoch, err := strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				return nil, newParseError(lineNo, "reversal_epoch", fields[3])
			}
			t := time.Unix(reversalEpoch, 0).UTC()
			reversal = &t
		}

		l.entries[userID] = append(l.entries[userID], Entry{
			Status: status, Observed: observed, Reversal: reversal,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("deactivation: read: %w", err)
	}

	return l, nil
}

// Write serializes the log in ascending user_id order, preserving
// each user's entry order.
func (l *Log) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, userID := range l.sortedUserIDs() {
		for _, e := range l.entries[userID] {
			reversal := ""
			if e.Reversal != nil {
				reversal = strconv.FormatInt(e.Reversal.Unix(), 10)
			}
			if _, err := fmt.Fprintf(bw, "%d,%d,%d,%s\n", userID, e.Status.Code(), e.Observed.Unix(), reversal); err != nil {
				return fmt.Errorf("deactivation: write: %w", err)
			}
		}
	}
	return bw.Flush()
}

// Merge combines l and other by per-user concatenation, then sorts
// each user's list by Observed, deduplicates adjacent exact
// duplicates, and — if the last two entries share a status and both
// are open — drops the later one. This is the rule by which
// overlapping scrape windows do not double-count the current state.
func Merge(l, other *Log) *Log {
	merged := New()
	for userID, entries := range l.entries {
		merged.entries[userID] = append([]Entry(nil), entries...)
	}
	for userID, entries := range other.entries {
		merged.entries[userID] = append(merged.entries[userID], entries...)
	}

	for userID, entries := range merged.entries {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Observed.Before(entries[j].Observed)
		})
		entries = dedupAdjacent(entries)

		n := len(entries)
		if n >= 2 {
			a, b := entries[n-2], entries[n-1]
			if a.Status == b.Status && a.open() && b.open() {
				entries = entries[:n-1]
			}
		}
		merged.entries[userID] = entries
	}

	return merged
}

func dedupAdjacent(entries []Entry) []Entry {
	if len(entries) < 2 {
		return entries
	}
	out := entries[:1]
	for _, e := range entries[1:] {
		prev := out[len(out)-1]
		if entriesEqual(prev, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func entriesEqual(a, b Entry) bool {
	if a.Status != b.Status || !a.Observed.Equal(b.Observed) {
		return false
	}
	if (a.Reversal == nil) != (b.Reversal == nil) {
		return false
	}
	if a.Reversal != nil && !a.Reversal.Equal(*b.Reversal) {
		return false
	}
	return true
}
