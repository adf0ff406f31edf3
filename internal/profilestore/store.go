// Package profilestore implements the content-addressed profile
// archive: a Badger-backed ordered key-value store keyed by
// (user id, lowercased screen name), with an associative merge
// reducer that collapses concurrent writes to the same key into one
// cell holding the earliest observation time and the latest payload.
package profilestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/travisbrown/twprofiles/internal/logging"
	"github.com/travisbrown/twprofiles/internal/metrics"
	"github.com/travisbrown/twprofiles/internal/model"
)

// HistoricalEntry is the externally-visible pair the store returns on
// read: the earliest time this (id, screen name) combination was
// observed, and the most recent profile payload seen under that key.
type HistoricalEntry struct {
	FirstObserved time.Time
	Profile       model.Profile
}

// Options configures Open.
type Options struct {
	// EnableStatistics makes Statistics() fill StatisticsText with a
	// formatted size summary. It is not passed to Badger: Badger's
	// own options and counters are the same either way.
	EnableStatistics bool
	// ValueLogFileSize overrides Badger's default value log segment
	// size. Zero uses Badger's own default.
	ValueLogFileSize int64
	// InMemory opens an ephemeral in-memory store, ignoring path.
	// Used by tests.
	InMemory bool
}

// Store is the profile archive handle. It is safe to share across
// goroutines: Badger owns its own internal concurrency, and Update
// additionally retries on transaction conflicts so concurrent writers
// to the same key always linearize through the merge reducer.
type Store struct {
	db               *badger.DB
	enableStatistics bool
}

const maxMergeRetries = 64

// Open creates or opens the archive at path. It configures Zstd
// compression and routes Badger's logging through internal/logging;
// opts.EnableStatistics only affects Statistics(), not Badger itself.
func Open(path string, opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	bopts = bopts.WithCompression(options.ZSTD)
	bopts = bopts.WithLogger(badgerLogAdapter{})
	if opts.InMemory {
		bopts = bopts.WithInMemory(true)
	}
	if opts.ValueLogFileSize > 0 {
		bopts = bopts.WithValueLogFileSize(opts.ValueLogFileSize)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("profilestore: open %q: %w", path, err)
	}

	return &Store{db: db, enableStatistics: opts.EnableStatistics}, nil
}

// Close releases the underlying engine's file handles and background
// compaction goroutines.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("profilestore: close: %w", err)
	}
	return nil
}

// Update idempotently folds profile into the archive under its
// (id, screen name) key. After Update returns, a subsequent Lookup for
// profile.ID observes a record whose snapshot is at least the one just
// written, regardless of what other writers did concurrently.
func (s *Store) Update(profile model.Profile) error {
	key := MakeKey(profile.ID, profile.ScreenName)
	incoming, err := encodeValue(record{firstObserved: time.Now().Unix(), profile: profile})
	if err != nil {
		return fmt.Errorf("profilestore: encode update for id=%d: %w", profile.ID, err)
	}

	for attempt := 0; attempt < maxMergeRetries; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			var existing []byte
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				existing = nil
			case err != nil:
				return err
			default:
				existing, err = item.ValueCopy(nil)
				if err != nil {
					return err
				}
			}

			merged, err := mergeRaw(existing, [][]byte{incoming})
			if err != nil {
				return err
			}
			return txn.Set(key, merged)
		})
		if err == nil {
			metrics.StoreUpdatesTotal.WithLabelValues("success").Inc()
			return nil
		}
		if errors.Is(err, badger.ErrConflict) {
			metrics.StoreUpdatesTotal.WithLabelValues("conflict_retry").Inc()
			continue
		}
		metrics.StoreUpdatesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("profilestore: update id=%d: %w", profile.ID, err)
	}

	metrics.StoreUpdatesTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("profilestore: update id=%d: too many transaction conflicts", profile.ID)
}

// Lookup returns every historical entry for userID, sorted ascending
// by Profile.Snapshot. It returns an empty slice if no record exists.
func (s *Store) Lookup(userID int64) ([]HistoricalEntry, error) {
	start := time.Now()
	defer func() { metrics.StoreLookupDuration.Observe(time.Since(start).Seconds()) }()

	var entries []HistoricalEntry

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := idPrefix(userID)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("profilestore: read value for id=%d: %w", userID, err)
			}
			rec, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("profilestore: lookup id=%d: %w", userID, err)
			}
			entries = append(entries, HistoricalEntry{
				FirstObserved: time.Unix(rec.firstObserved, 0).UTC(),
				Profile:       rec.profile,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortBySnapshot(entries)
	return entries, nil
}

func sortBySnapshot(entries []HistoricalEntry) {
	// Small batches (distinct screen names for one user); insertion
	// sort is simple and avoids pulling in sort.Slice's reflection
	// overhead for what's typically a handful of entries.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Profile.Snapshot < entries[j-1].Profile.Snapshot; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// Batch is one group of historical entries sharing the same user id,
// as yielded by Iter.
type Batch struct {
	UserID  int64
	Entries []HistoricalEntry
}

// Iter performs a full forward scan of the archive, grouping
// consecutive records that share the same id prefix into one batch
// each, sorted ascending by snapshot within the batch. fn is called
// once per batch; returning an error from fn stops iteration early and
// that error is returned from Iter.
func (s *Store) Iter(fn func(Batch) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		var current *Batch

		flush := func() error {
			if current == nil {
				return nil
			}
			sortBySnapshot(current.Entries)
			return fn(*current)
		}

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			userID, _, err := splitKey(key)
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("profilestore: iter read value: %w", err)
			}
			rec, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("profilestore: iter decode id=%d: %w", userID, err)
			}
			entry := HistoricalEntry{
				FirstObserved: time.Unix(rec.firstObserved, 0).UTC(),
				Profile:       rec.profile,
			}

			if current == nil || current.UserID != userID {
				if err := flush(); err != nil {
					return err
				}
				current = &Batch{UserID: userID}
			}
			current.Entries = append(current.Entries, entry)
		}

		return flush()
	})
}

// RawEntry is a single ungrouped (id, handle) row, as yielded by
// RawIter.
type RawEntry struct {
	UserID int64
	Entry  HistoricalEntry
}

// RawIter performs an ungrouped forward scan, calling fn once per
// stored row.
func (s *Store) RawIter(fn func(RawEntry) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			userID, _, err := splitKey(item.KeyCopy(nil))
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("profilestore: raw iter read value: %w", err)
			}
			rec, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("profilestore: raw iter decode id=%d: %w", userID, err)
			}
			if err := fn(RawEntry{
				UserID: userID,
				Entry: HistoricalEntry{
					FirstObserved: time.Unix(rec.firstObserved, 0).UTC(),
					Profile:       rec.profile,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// EstimateKeyCount returns Badger's approximate key count, an opaque
// diagnostic: the sum of the key counts Badger records for its
// on-disk tables. Keys held only in the memtable are not counted.
func (s *Store) EstimateKeyCount() uint64 {
	var n uint64
	for _, t := range s.db.Tables() {
		n += uint64(t.KeyCount)
	}
	return n
}

// Stats is the opaque diagnostic bundle returned by Statistics.
type Stats struct {
	LSMSizeBytes   int64
	ValueLogBytes  int64
	StatisticsText string
}

// Statistics returns Badger's size counters, plus a formatted
// "lsm=...B vlog=...B" summary of them when EnableStatistics was set
// at Open.
func (s *Store) Statistics() Stats {
	lsm, vlog := s.db.Size()
	stats := Stats{LSMSizeBytes: lsm, ValueLogBytes: vlog}
	if s.enableStatistics {
		stats.StatisticsText = fmt.Sprintf("lsm=%dB vlog=%dB", lsm, vlog)
	}
	metrics.StoreEntriesTotal.Set(float64(s.EstimateKeyCount()))
	return stats
}

// badgerLogAdapter routes Badger's internal logging through zerolog,
// matching the rest of the service's structured-logging convention.
type badgerLogAdapter struct{}

func (badgerLogAdapter) Errorf(format string, args ...interface{}) {
	logging.Error().Msg(fmt.Sprintf(format, args...))
}
func (badgerLogAdapter) Warningf(format string, args ...interface{}) {
	logging.Warn().Msg(fmt.Sprintf(format, args...))
}
func (badgerLogAdapter) Infof(format string, args ...interface{}) {
	logging.Info().Msg(fmt.Sprintf(format, args...))
}
func (badgerLogAdapter) Debugf(format string, args ...interface{}) {
	logging.Debug().Msg(fmt.Sprintf(format, args...))
}
