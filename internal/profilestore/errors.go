package profilestore

import "errors"

var (
	// ErrMalformedKey is returned when a stored key is shorter than
	// the fixed 8-byte id prefix.
	ErrMalformedKey = errors.New("profilestore: malformed key")

	// ErrMalformedValue is returned when a stored value is shorter
	// than the fixed 8-byte first-observed prefix.
	ErrMalformedValue = errors.New("profilestore: malformed value")

	// ErrDecodeFailed is returned by a read operation when the stored
	// payload cannot be decoded into a Profile.
	ErrDecodeFailed = errors.New("profilestore: decode failed")

	// errNoValidOperand is the internal sentinel returned by the
	// merge reducer when every candidate value failed to decode and
	// there was no existing on-disk value to fall back to.
	errNoValidOperand = errors.New("profilestore: no valid operand to merge")
)
