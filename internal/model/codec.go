package model

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Canonical encoding gives deterministic byte output for the same
	// logical record, which keeps merge-tie-break tests reproducible.
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("model: building cbor encode mode: %v", err))
	}
	// ExtraDecErrorOnUnknownField left at its default (no error) is
	// what gives the "tolerate unknown fields" property the payload
	// schema requires.
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("model: building cbor decode mode: %v", err))
	}
}

// Encode serializes a Profile to its self-describing binary payload.
func Encode(p Profile) ([]byte, error) {
	b, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return b, nil
}

// Decode deserializes a Profile payload, tolerating unknown fields.
func Decode(b []byte) (Profile, error) {
	var p Profile
	if err := decMode.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}
