package userlookup

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/travisbrown/twprofiles/internal/deactivation"
	"github.com/travisbrown/twprofiles/internal/model"
)

// fixtureRecord is one line of a FileLookup fixture: either a fetched
// profile or a terminal status for an id, mirroring Result's shape on
// the wire.
type fixtureRecord struct {
	UserID     int64         `json:"user_id"`
	Ok         bool          `json:"ok"`
	Profile    model.Profile `json:"profile,omitempty"`
	StatusCode int32         `json:"status_code,omitempty"`
}

// FileLookup serves LookupBatch from a pre-recorded JSON-lines
// fixture rather than a live Twitter API client, standing in for the
// HTTP plumbing this package deliberately omits. Useful for offline
// replay, demos, and tests of the scraper wiring.
type FileLookup struct {
	results map[int64]Result
}

// NewFileLookup reads a fixture of newline-delimited fixtureRecord
// JSON objects from r.
func NewFileLookup(r io.Reader) (*FileLookup, error) {
	results := make(map[int64]Result)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec fixtureRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("userlookup: parse fixture line: %w", err)
		}
		results[rec.UserID] = Result{
			UserID:     rec.UserID,
			Ok:         rec.Ok,
			Profile:    rec.Profile,
			StatusCode: rec.StatusCode,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("userlookup: read fixture: %w", err)
	}

	return &FileLookup{results: results}, nil
}

// LookupBatch resolves each requested id from the fixture. An id with
// no fixture entry is reported as not found, matching how a live
// client would report an unreachable id rather than silently
// dropping it.
func (f *FileLookup) LookupBatch(_ context.Context, ids []int64) ([]Result, error) {
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		if result, ok := f.results[id]; ok {
			out = append(out, result)
			continue
		}
		out = append(out, Result{UserID: id, Ok: false, StatusCode: deactivation.NotFound.Code()})
	}
	return out, nil
}
