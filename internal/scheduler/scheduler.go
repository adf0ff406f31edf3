// Package scheduler implements the rescrape scheduler: a concurrent
// priority queue of user ids to fetch, biased toward users with many
// recently observed connection changes, reshaped online by addition,
// removal, and deactivation events from the scraper.
package scheduler

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/travisbrown/twprofiles/internal/metrics"
)

// MaxTargetDays bounds the widest spacing between rescrapes, at
// score 1.
const MaxTargetDays = 10

// DefaultSkipDeactivationRecheck is the default window during which a
// just-confirmed deactivation suppresses re-promotion on a later
// process_removals event for the same id.
const DefaultSkipDeactivationRecheck = 2 * time.Hour

// Scheduler holds the three independently-locked pieces of state
// described by its target formula: a priority queue of due times, a
// per-user connection score, and a record of recent deactivations.
//
// Locks are acquired in a fixed order whenever an operation needs
// more than one: scores, then queue, then recentlyDeactivated. No
// operation holds two locks at once: ProcessAdditions and
// ProcessUpdates release scores before taking queue, and
// ProcessRemovals takes its locks in two independent goroutines
// joined with a WaitGroup rather than nesting them.
type Scheduler struct {
	queueMu sync.RWMutex
	queue   *priorityHeap

	scoresMu sync.RWMutex
	scores   map[int64]uint32

	deactivatedMu       sync.RWMutex
	recentlyDeactivated map[int64]time.Time

	skipDeactivationRecheck time.Duration
	now                     func() time.Time
}

// BootstrapItem is one (user id, score, last snapshot) triple used to
// seed a new Scheduler.
type BootstrapItem struct {
	UserID       int64
	Score        uint32
	LastSnapshot time.Time
}

// New builds a Scheduler from bootstrap items, inserting each into
// the queue with the target its score implies at its last snapshot
// time.
func New(items []BootstrapItem) *Scheduler {
	return newWithClock(items, time.Now)
}

func newWithClock(items []BootstrapItem, now func() time.Time) *Scheduler {
	s := &Scheduler{
		queue:                   newPriorityHeap(),
		scores:                  make(map[int64]uint32),
		recentlyDeactivated:     make(map[int64]time.Time),
		skipDeactivationRecheck: DefaultSkipDeactivationRecheck,
		now:                     now,
	}
	for _, item := range items {
		s.queue.upsert(item.UserID, computeTarget(item.LastSnapshot, item.Score))
		s.scores[item.UserID] = item.Score
	}
	return s
}

// SetSkipDeactivationRecheck overrides the default 2-hour window.
func (s *Scheduler) SetSkipDeactivationRecheck(d time.Duration) {
	s.skipDeactivationRecheck = d
}

// computeTarget implements target(now, score) = now + (MAX_TARGET_DAYS/score)*86400,
// treating score 0 as 1 to avoid division by zero, and truncating to
// uint32 seconds-since-epoch as the source does.
func computeTarget(at time.Time, score uint32) uint32 {
	if score == 0 {
		score = 1
	}
	days := float64(MaxTargetDays) / float64(score)
	seconds := float64(at.Unix()) + days*86400
	return uint32(seconds)
}

// NextBatch pops up to count ids with the smallest targets, fewest if
// the queue is shorter, in ascending target order.
func (s *Scheduler) NextBatch(count int) []int64 {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	batch := s.queue.popBatch(count)
	metrics.SchedulerBatchesTotal.Inc()
	metrics.SchedulerQueueSize.Set(float64(s.queue.len()))
	return batch
}

// ProcessAdditions records one new connection for each id and
// ensures it's queued with priority 0 (fetch immediately) unless it
// already has a sooner target.
func (s *Scheduler) ProcessAdditions(ids []int64) {
	ids = dedupe(ids)

	s.scoresMu.Lock()
	for _, id := range ids {
		s.scores[id]++
	}
	s.scoresMu.Unlock()

	s.queueMu.Lock()
	for _, id := range ids {
		s.queue.promote(id, 0)
	}
	s.queueMu.Unlock()
}

// ProcessRemovals decrements one connection for each id, and
// separately promotes to priority 0 every id that is not within its
// recently-deactivated recheck window. The two effects run as
// independent, non-nested lock acquisitions joined by a WaitGroup, so
// neither blocks on the other.
func (s *Scheduler) ProcessRemovals(ids []int64) {
	ids = dedupe(ids)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.decrementScores(ids)
	}()

	go func() {
		defer wg.Done()
		survivors := s.filterRecentlyDeactivated(ids)
		if len(survivors) == 0 {
			return
		}
		s.queueMu.Lock()
		for _, id := range survivors {
			s.queue.promote(id, 0)
		}
		s.queueMu.Unlock()
	}()

	wg.Wait()
}

// ProcessUpdates recomputes each id's target from its current score
// (default 1 if unset) and unconditionally reinserts it into the
// queue. Called after a successful fetch.
func (s *Scheduler) ProcessUpdates(ids []int64) {
	now := s.now()

	s.scoresMu.RLock()
	targets := make(map[int64]uint32, len(ids))
	for _, id := range ids {
		score, ok := s.scores[id]
		if !ok {
			score = 1
		}
		targets[id] = computeTarget(now, score)
	}
	s.scoresMu.RUnlock()

	s.queueMu.Lock()
	for _, id := range ids {
		s.queue.upsert(id, targets[id])
	}
	s.queueMu.Unlock()
}

// ProcessDeactivations records now as each id's last deactivation
// time. It touches neither scores nor the queue.
func (s *Scheduler) ProcessDeactivations(ids []int64) {
	now := s.now()

	s.deactivatedMu.Lock()
	for _, id := range ids {
		s.recentlyDeactivated[id] = now
	}
	s.deactivatedMu.Unlock()
}

func (s *Scheduler) decrementScores(ids []int64) {
	s.scoresMu.Lock()
	defer s.scoresMu.Unlock()
	for _, id := range ids {
		if score := s.scores[id]; score > 0 {
			s.scores[id] = score - 1
		}
	}
}

// filterRecentlyDeactivated returns the subset of ids whose last
// deactivation, if any, falls outside the skip-recheck window — the
// ones eligible for promotion. An id deactivated within the window is
// excluded: it was just confirmed unreachable, so there's no point
// rechecking it again immediately.
func (s *Scheduler) filterRecentlyDeactivated(ids []int64) []int64 {
	now := s.now()

	s.deactivatedMu.RLock()
	defer s.deactivatedMu.RUnlock()

	survivors := make([]int64, 0, len(ids))
	for _, id := range ids {
		deactivatedAt, ok := s.recentlyDeactivated[id]
		if !ok || now.Sub(deactivatedAt) > s.skipDeactivationRecheck {
			survivors = append(survivors, id)
		}
	}
	return survivors
}

// Score returns id's current connection score, 0 if never observed.
func (s *Scheduler) Score(id int64) uint32 {
	s.scoresMu.RLock()
	defer s.scoresMu.RUnlock()
	return s.scores[id]
}

// Target returns id's current queue target and whether it's present
// in the queue.
func (s *Scheduler) Target(id int64) (uint32, bool) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	return s.queue.get(id)
}

// Len returns the number of ids currently queued.
func (s *Scheduler) Len() int {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	return s.queue.len()
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// LoadBootstrap parses the scraper's stdin bootstrap format: one
// "user_id,score,last_snapshot_epoch" triple per line.
func LoadBootstrap(r io.Reader) ([]BootstrapItem, error) {
	var items []BootstrapItem
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("scheduler: bootstrap line %d: expected 3 fields, got %d", lineNo, len(fields))
		}

		userID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scheduler: bootstrap line %d: invalid user_id %q", lineNo, fields[0])
		}
		score, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("scheduler: bootstrap line %d: invalid score %q", lineNo, fields[1])
		}
		snapshotEpoch, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scheduler: bootstrap line %d: invalid last_snapshot %q", lineNo, fields[2])
		}

		items = append(items, BootstrapItem{
			UserID:       userID,
			Score:        uint32(score),
			LastSnapshot: time.Unix(snapshotEpoch, 0).UTC(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scheduler: bootstrap: %w", err)
	}

	return items, nil
}
