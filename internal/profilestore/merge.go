package profilestore

import (
	"encoding/binary"
	"fmt"

	"github.com/travisbrown/twprofiles/internal/logging"
	"github.com/travisbrown/twprofiles/internal/model"
)

// record is the decoded form of a stored value: the earliest ingest
// time this (id, screen name) pair was observed, plus the most recent
// profile payload seen under that key.
type record struct {
	firstObserved int64
	profile       model.Profile
}

// encodeValue serializes a record to its on-disk byte layout:
// 8-byte big-endian first_observed followed by the CBOR payload.
func encodeValue(r record) ([]byte, error) {
	payload, err := model.Encode(r.profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(out[:8], uint64(r.firstObserved))
	copy(out[8:], payload)
	return out, nil
}

// decodeValue parses the on-disk byte layout back into a record.
func decodeValue(raw []byte) (record, error) {
	if len(raw) < 8 {
		return record{}, fmt.Errorf("%w: %d bytes", ErrMalformedValue, len(raw))
	}
	firstObserved := int64(binary.BigEndian.Uint64(raw[:8]))
	profile, err := model.Decode(raw[8:])
	if err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return record{firstObserved: firstObserved, profile: profile}, nil
}

// mergeRaw is the store's associative reducer. It takes an optional
// current on-disk value and an ordered list of pending operand
// values, and produces one combined value: the minimum first_observed
// across every input that decoded successfully, paired with the
// payload whose snapshot is maximum across those same inputs. Ties on
// maximum snapshot keep the earlier (left-most) input.
//
// A decode failure on any single input is logged and that input is
// skipped — one bad operand never poisons the merge. If every input
// fails to decode, the prior on-disk value (if any) is returned
// unchanged; if there was no prior value either, an error is
// returned, since there is nothing to write.
func mergeRaw(existing []byte, operands [][]byte) ([]byte, error) {
	var (
		best    record
		haveOne bool
	)

	consider := func(raw []byte, source string) {
		r, err := decodeValue(raw)
		if err != nil {
			logging.Warn().Err(err).Str("source", source).Msg("profilestore: skipping undecodable merge operand")
			return
		}
		if !haveOne {
			best = r
			haveOne = true
			return
		}
		if r.firstObserved < best.firstObserved {
			best.firstObserved = r.firstObserved
		}
		// Strict > only: on a tie the left-most (already-chosen)
		// payload is retained, matching the existing-value-or-earlier-
		// operand tie-break rule.
		if r.profile.Snapshot > best.profile.Snapshot {
			best.profile = r.profile
		}
	}

	if existing != nil {
		consider(existing, "existing")
	}
	for i, operand := range operands {
		consider(operand, fmt.Sprintf("operand[%d]", i))
	}

	if !haveOne {
		// Every candidate failed to decode. Keep the prior on-disk
		// value as it is; with no prior value there is nothing to write.
		if existing != nil {
			return existing, nil
		}
		return nil, errNoValidOperand
	}

	return encodeValue(best)
}
