// Package scraper implements the continuous batch loop that drives
// the scheduler, the UserLookup capability, the deactivation log, and
// the profile store: pull a batch from the scheduler, fetch it,
// write successes into the store, record terminal statuses into the
// deactivation log, and feed both outcomes back into the scheduler.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/travisbrown/twprofiles/internal/deactivation"
	"github.com/travisbrown/twprofiles/internal/logging"
	"github.com/travisbrown/twprofiles/internal/metrics"
	"github.com/travisbrown/twprofiles/internal/profilestore"
	"github.com/travisbrown/twprofiles/internal/scheduler"
	"github.com/travisbrown/twprofiles/internal/userlookup"
)

// ErrSnapshotAlreadySet is the error for an upstream payload that
// already carries a snapshot field; the scraper treats this as a
// malformed-payload condition rather than silently overwriting it.
// RunBatch logs it and drops that payload without failing the batch.
var ErrSnapshotAlreadySet = fmt.Errorf("scraper: payload already has a snapshot field")

// Options configures a Runner.
type Options struct {
	// BatchSize is the number of ids pulled from the scheduler per tick.
	BatchSize int
	// Now overrides the clock used to stamp snapshots; defaults to time.Now.
	Now func() time.Time
}

// Runner owns the three core components and drives one batch tick at
// a time. The deactivation log is guarded by its own mutex since,
// unlike the store and scheduler, it has no internal concurrency of
// its own — the spec treats it as a single-owner in-memory structure.
type Runner struct {
	store  *profilestore.Store
	sched  *scheduler.Scheduler
	lookup userlookup.Lookup

	logMu sync.Mutex
	log   *deactivation.Log

	batchSize int
	now       func() time.Time
}

// NewRunner builds a Runner over the given store, scheduler, lookup
// capability, and starting deactivation log (New() if none exists
// yet).
func NewRunner(store *profilestore.Store, sched *scheduler.Scheduler, lookup userlookup.Lookup, log *deactivation.Log, opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = deactivation.New()
	}
	return &Runner{
		store:     store,
		sched:     sched,
		lookup:    lookup,
		log:       log,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
}

// Run loops RunBatch until ctx is cancelled, treating cancellation as
// terminal rather than retrying. A batch that fails for any other
// reason is logged and the loop goes on to the next batch.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.RunBatch(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logging.Error().Err(err).Msg("scraper: batch failed")
		}
	}
}

// RunBatch performs one scheduler-pull / fetch / write tick. A
// timed-out or transport-failed fetch for an id is simply dropped
// from the tick — it is left neither updated nor deactivated, and
// remains out of the queue until the next event names it again.
func (r *Runner) RunBatch(ctx context.Context) error {
	start := r.now()
	defer func() { metrics.ScraperBatchDuration.Observe(time.Since(start).Seconds()) }()

	ids := r.sched.NextBatch(r.batchSize)
	if len(ids) == 0 {
		return nil
	}

	results, err := r.lookup.LookupBatch(ctx, ids)
	if err != nil {
		return fmt.Errorf("scraper: lookup batch: %w", err)
	}

	var updatedIDs, deactivatedIDs []int64
	var reversals []deactivation.Reversal

	for _, result := range results {
		if result.Ok {
			if err := r.applyUpdate(result); err != nil {
				logging.Error().Err(err).Int64("user_id", result.UserID).Msg("scraper: dropping update")
				metrics.ScraperFetchesTotal.WithLabelValues("error").Inc()
				continue
			}
			updatedIDs = append(updatedIDs, result.UserID)
			reversals = append(reversals, deactivation.Reversal{UserID: result.UserID, At: r.now()})
			metrics.ScraperFetchesTotal.WithLabelValues("updated").Inc()
			continue
		}

		r.recordDeactivation(result.UserID, result.StatusCode)
		deactivatedIDs = append(deactivatedIDs, result.UserID)
		metrics.ScraperFetchesTotal.WithLabelValues("deactivated").Inc()
	}

	if len(reversals) > 0 {
		r.logMu.Lock()
		r.log.Update(reversals)
		r.logMu.Unlock()
	}

	r.sched.ProcessUpdates(updatedIDs)
	r.sched.ProcessDeactivations(deactivatedIDs)

	logging.ScrapeEvent(len(ids), len(updatedIDs), len(deactivatedIDs), r.now().Sub(start))

	return nil
}

func (r *Runner) applyUpdate(result userlookup.Result) error {
	profile := result.Profile
	if profile.Snapshot != 0 {
		return ErrSnapshotAlreadySet
	}
	profile.Snapshot = r.now().Unix()

	if err := r.store.Update(profile); err != nil {
		return fmt.Errorf("store update: %w", err)
	}
	return nil
}

func (r *Runner) recordDeactivation(userID int64, statusCode int32) {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	r.log.Append(userID, deactivation.ParseStatus(statusCode), r.now())
}

// Log returns the runner's current deactivation log.
func (r *Runner) Log() *deactivation.Log {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	return r.log
}
