// Package userlookup defines the scraper's external UserLookup
// capability: the boundary between the scheduler core and the
// Twitter API client, which this package deliberately does not
// implement. FileLookup provides a fixture-backed Lookup for offline
// replay and for wiring the scraper end to end without live
// credentials.
package userlookup

import (
	"context"

	"github.com/travisbrown/twprofiles/internal/model"
)

// Result is one outcome of a batch lookup: either a fetched profile,
// or a terminal status code reported for an unreachable id. Exactly
// one of Profile or StatusCode is meaningful, discriminated by Ok.
type Result struct {
	UserID     int64
	Ok         bool
	Profile    model.Profile
	StatusCode int32
}

// Lookup is the capability the scheduler's scraper depends on: given
// a bounded batch of ids, resolve each to a profile or a terminal
// status. Implementations own their own rate limiting and must not
// surface rate-limit waits as errors — retry internally rather than
// failing the batch.
type Lookup interface {
	LookupBatch(ctx context.Context, ids []int64) ([]Result, error)
}
